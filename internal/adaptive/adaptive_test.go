package adaptive

import (
	"context"
	"net"
	"testing"
	"time"

	"portsweep/internal/scan"
)

type stubScanner struct {
	state scan.PortState
	rtt   time.Duration
	calls int
}

func (s *stubScanner) Capabilities() scan.Capabilities { return scan.Capabilities{} }

func (s *stubScanner) Probe(ctx context.Context, address net.IP, port int) (scan.PortState, time.Duration) {
	s.calls++
	return s.state, s.rtt
}

func TestScanner_DelegatesAndReportsSuccess(t *testing.T) {
	inner := &stubScanner{state: scan.StateOpen, rtt: 5 * time.Millisecond}
	s := NewScanner(inner, 2, 1, 4)

	state, rtt := s.Probe(context.Background(), net.IPv4(1, 1, 1, 1), 80)
	if state != scan.StateOpen {
		t.Errorf("got %v, want StateOpen", state)
	}
	if rtt != 5*time.Millisecond {
		t.Errorf("got rtt %v, want 5ms", rtt)
	}
	if inner.calls != 1 {
		t.Errorf("got %d inner calls, want 1", inner.calls)
	}
	if s.limiter.CurrentLimit() != 2 {
		t.Errorf("got limit %d, want unchanged at 2 after a single success", s.limiter.CurrentLimit())
	}
}

func TestScanner_FailureShrinksLimiter(t *testing.T) {
	inner := &stubScanner{state: scan.StateFiltered}
	s := NewScanner(inner, 4, 1, 8)

	_, _ = s.Probe(context.Background(), net.IPv4(1, 1, 1, 1), 80)

	if got := s.limiter.CurrentLimit(); got >= 4 {
		t.Errorf("got limit %d, want a decrease below the initial 4 after a failure", got)
	}
}

func TestScanner_CancelledContextNeverCallsInner(t *testing.T) {
	inner := &stubScanner{state: scan.StateOpen}
	s := NewScanner(inner, 1, 1, 1)

	// Exhaust the single token so the next Acquire blocks on ctx.
	if err := s.limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, _ := s.Probe(ctx, net.IPv4(1, 1, 1, 1), 80)
	if state != scan.StateFiltered {
		t.Errorf("got %v, want StateFiltered on cancelled acquire", state)
	}
	if inner.calls != 0 {
		t.Errorf("got %d inner calls, want 0", inner.calls)
	}
}
