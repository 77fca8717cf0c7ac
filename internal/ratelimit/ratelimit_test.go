package ratelimit

import (
	"context"
	"net"
	"testing"
	"time"

	"portsweep/internal/scan"
)

type stubScanner struct {
	calls int
}

func (s *stubScanner) Capabilities() scan.Capabilities { return scan.Capabilities{} }

func (s *stubScanner) Probe(ctx context.Context, address net.IP, port int) (scan.PortState, time.Duration) {
	s.calls++
	return scan.StateOpen, time.Millisecond
}

func TestLimitedScanner_DelegatesOnAdmission(t *testing.T) {
	stub := &stubScanner{}
	limited := NewLimitedScanner(stub, 100)

	state, _ := limited.Probe(context.Background(), net.ParseIP("127.0.0.1"), 80)
	if state != scan.StateOpen {
		t.Errorf("got %v, want StateOpen", state)
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestLimitedScanner_CancelledContextNeverCallsInner(t *testing.T) {
	stub := &stubScanner{}
	limited := NewLimitedScanner(stub, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, _ := limited.Probe(ctx, net.ParseIP("127.0.0.1"), 80)
	if state != scan.StateFiltered {
		t.Errorf("got %v, want StateFiltered", state)
	}
	if stub.calls != 0 {
		t.Errorf("got %d calls, want 0 (cancelled before admission)", stub.calls)
	}
}
