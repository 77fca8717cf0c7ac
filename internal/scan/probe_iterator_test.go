package scan

import (
	"fmt"
	"net"
	"testing"
)

func ips(n int) []net.IP {
	out := make([]net.IP, n)
	for i := range out {
		out[i] = net.IPv4(10, 0, 0, byte(i+1))
	}
	return out
}

func TestProbeIterator_SerialCoversEveryPair(t *testing.T) {
	cfg := &ScanConfig{Addresses: ips(2), Ports: []int{80, 443}, ScanOrder: OrderSerial}
	it := NewProbeIterator(cfg)

	if it.Len() != 4 {
		t.Fatalf("got Len()=%d, want 4", it.Len())
	}

	var got []Probe
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, p)
	}
	if len(got) != 4 {
		t.Fatalf("got %d probes, want 4", len(got))
	}

	if got[0].Address.String() != "10.0.0.1" || got[0].Port != 80 {
		t.Errorf("serial order: first probe was %+v", got[0])
	}
	if got[3].Address.String() != "10.0.0.2" || got[3].Port != 443 {
		t.Errorf("serial order: last probe was %+v", got[3])
	}
}

func TestProbeIterator_RandomCoversEveryPairExactlyOnce(t *testing.T) {
	cfg := &ScanConfig{Addresses: ips(3), Ports: []int{1, 2, 3}, ScanOrder: OrderRandom}
	it := NewProbeIterator(cfg)

	seen := make(map[string]bool)
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		key := fmt.Sprintf("%s:%d", p.Address, p.Port)
		if seen[key] {
			t.Fatalf("probe %+v emitted twice", p)
		}
		seen[key] = true
	}
	if len(seen) != 9 {
		t.Fatalf("got %d unique probes, want 9", len(seen))
	}
}

func TestProbeIterator_ExclusionsApplyBeforeEmission(t *testing.T) {
	cfg := &ScanConfig{
		Addresses:        ips(2),
		Ports:            []int{80, 443},
		ExcludeAddresses: []net.IP{net.IPv4(10, 0, 0, 1)},
		ExcludePorts:     []int{443},
	}
	it := NewProbeIterator(cfg)

	if it.Len() != 1 {
		t.Fatalf("got Len()=%d, want 1", it.Len())
	}
	p, ok := it.Next()
	if !ok {
		t.Fatal("expected one probe")
	}
	if p.Address.String() != "10.0.0.2" || p.Port != 80 {
		t.Errorf("got %+v, want 10.0.0.2:80", p)
	}
}

func TestProbeIterator_EmptyInputsNeverEmit(t *testing.T) {
	it := NewProbeIterator(&ScanConfig{})
	if _, ok := it.Next(); ok {
		t.Error("expected no probes from an empty config")
	}
}
