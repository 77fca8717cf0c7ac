package scan

import (
	"context"
	"net"
	"testing"
	"time"
)

// listenOn opens a TCP listener on 127.0.0.1 and accepts (and immediately
// closes) every connection, simulating an open port with no service logic
// behind it.
func listenOn(t *testing.T) (port int, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, func() { ln.Close() }
}

func TestFunctional_EngineFindsOpenPortAmongClosedOnes(t *testing.T) {
	openPort, closeFn := listenOn(t)
	defer closeFn()

	// Pick two closed ports by binding and releasing them.
	closedA, relA := listenOn(t)
	relA()
	closedB, relB := listenOn(t)
	relB()

	cfg := &ScanConfig{
		Addresses:  []net.IP{net.ParseIP("127.0.0.1")},
		Ports:      []int{openPort, closedA, closedB},
		Timeout:    500 * time.Millisecond,
		MaxRetries: 1,
		BatchSize:  4,
	}

	engine := NewEngine()
	result, err := engine.Scan(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Hosts) != 1 {
		t.Fatalf("got %d hosts, want 1", len(result.Hosts))
	}
	host := result.Hosts[0]
	if host.State != HostCompleted {
		t.Errorf("got state %v, want HostCompleted", host.State)
	}
	if len(host.OpenPorts) != 1 || host.OpenPorts[0].Port != openPort {
		t.Errorf("got open ports %+v, want only %d", host.OpenPorts, openPort)
	}

	stats := host.Stats.Snapshot()
	if stats.ProbesSent != 3 {
		t.Errorf("got ProbesSent=%d, want 3", stats.ProbesSent)
	}
}

func TestFunctional_EngineRespectsCancellation(t *testing.T) {
	openPort, closeFn := listenOn(t)
	defer closeFn()

	cfg := &ScanConfig{
		Addresses:  []net.IP{net.ParseIP("127.0.0.1")},
		Ports:      []int{openPort},
		Timeout:    500 * time.Millisecond,
		MaxRetries: 1,
	}

	engine := NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Scan(ctx, cfg)
	if err != ErrCancelled {
		t.Errorf("got err=%v, want ErrCancelled", err)
	}
	if len(result.Hosts) != 0 {
		t.Errorf("got %d hosts scanned after pre-cancelled context, want 0", len(result.Hosts))
	}
}

func TestFunctional_EngineHeartbeatsAreEmitted(t *testing.T) {
	openPort, closeFn := listenOn(t)
	defer closeFn()

	cfg := &ScanConfig{
		Addresses:  []net.IP{net.ParseIP("127.0.0.1")},
		Ports:      []int{openPort},
		Timeout:    500 * time.Millisecond,
		MaxRetries: 1,
	}

	engine := NewEngine()

	done := make(chan struct{})
	var gotHeartbeat bool
	go func() {
		defer close(done)
		for ev := range engine.Heartbeats() {
			if ev.ProbesCompleted > 0 {
				gotHeartbeat = true
				return
			}
		}
	}()

	if _, err := engine.Scan(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a heartbeat")
	}
	if !gotHeartbeat {
		t.Error("expected at least one heartbeat with ProbesCompleted > 0")
	}
}
