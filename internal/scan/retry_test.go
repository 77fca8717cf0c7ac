package scan

import (
	"context"
	"net"
	"testing"
	"time"
)

type scriptedScanner struct {
	states []PortState
	calls  int
}

func (s *scriptedScanner) Capabilities() Capabilities { return Capabilities{} }

func (s *scriptedScanner) Probe(ctx context.Context, address net.IP, port int) (PortState, time.Duration) {
	idx := s.calls
	if idx >= len(s.states) {
		idx = len(s.states) - 1
	}
	state := s.states[idx]
	s.calls++
	return state, time.Millisecond
}

func TestRetryScanner_OpenDominatesOnFirstAttempt(t *testing.T) {
	inner := &scriptedScanner{states: []PortState{StateOpen, StateClosed, StateClosed}}
	r := NewRetryScanner(inner, 3, time.Second)

	state, _, retried := r.ProbeWithRetries(context.Background(), net.IPv4(1, 1, 1, 1), 80)
	if state != StateOpen {
		t.Errorf("got %v, want StateOpen", state)
	}
	if retried {
		t.Error("expected retried=false on first-attempt success")
	}
	if inner.calls != 1 {
		t.Errorf("got %d Probe calls, want exactly 1", inner.calls)
	}
}

func TestRetryScanner_OpenOnLaterAttemptStillWins(t *testing.T) {
	inner := &scriptedScanner{states: []PortState{StateFiltered, StateOpen}}
	r := NewRetryScanner(inner, 3, time.Second)

	state, _, retried := r.ProbeWithRetries(context.Background(), net.IPv4(1, 1, 1, 1), 80)
	if state != StateOpen {
		t.Errorf("got %v, want StateOpen", state)
	}
	if !retried {
		t.Error("expected retried=true after a retry")
	}
}

func TestRetryScanner_LastAttemptWinsAmongNonOpen(t *testing.T) {
	inner := &scriptedScanner{states: []PortState{StateFiltered, StateFiltered, StateClosed}}
	r := NewRetryScanner(inner, 3, time.Second)

	state, _, retried := r.ProbeWithRetries(context.Background(), net.IPv4(1, 1, 1, 1), 80)
	if state != StateClosed {
		t.Errorf("got %v, want last attempt's StateClosed", state)
	}
	if !retried {
		t.Error("expected retried=true")
	}
}

func TestRetryScanner_ClampsMaxRetries(t *testing.T) {
	r := NewRetryScanner(&scriptedScanner{states: []PortState{StateClosed}}, 99, time.Second)
	if r.maxRetries != 3 {
		t.Errorf("got maxRetries=%d, want clamped to 3", r.maxRetries)
	}

	r2 := NewRetryScanner(&scriptedScanner{states: []PortState{StateClosed}}, 0, time.Second)
	if r2.maxRetries != 1 {
		t.Errorf("got maxRetries=%d, want clamped to 1", r2.maxRetries)
	}
}

func TestRetryScanner_StopsRetryingOnCancellation(t *testing.T) {
	inner := &scriptedScanner{states: []PortState{StateFiltered, StateFiltered, StateFiltered}}
	r := NewRetryScanner(inner, 3, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _ = r.ProbeWithRetries(ctx, net.IPv4(1, 1, 1, 1), 80)
	if inner.calls > 1 {
		t.Errorf("expected retries to stop after cancellation, inner advanced %d times", inner.calls)
	}
}
