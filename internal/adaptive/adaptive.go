// Package adaptive wraps a scan.PortScanner with the AIMD concurrency
// limiter and RFC 6298 RTO estimator from internal/qos. It is an optional
// collaborator (§9 Design Notes): internal/scan never imports it, and a
// scan runs identically without it. Callers that want probe concurrency and
// per-probe timeout to track observed network conditions opt in by handing
// NewScanner to scan.Engine.WithScannerWrap. The adaptive limits apply in
// addition to the engine's FD-budgeted width and configured timeout, which
// still bound every probe.
package adaptive

import (
	"context"
	"net"
	"time"

	"portsweep/internal/qos"
	"portsweep/internal/scan"
)

// Scanner decorates a scan.PortScanner with an AdaptiveLimiter gating
// concurrency and an RttEstimator driving the per-probe deadline.
type Scanner struct {
	inner     scan.PortScanner
	limiter   *qos.AdaptiveLimiter
	estimator *qos.RttEstimator
}

// NewScanner builds a Scanner around inner. initial/min/max bound the
// AIMD concurrency window; a scan that never observes Filtered verdicts
// climbs from initial toward max, one step per currentLimit successes.
func NewScanner(inner scan.PortScanner, initial, min, max int) *Scanner {
	return &Scanner{
		inner:     inner,
		limiter:   qos.NewAdaptiveLimiter(initial, min, max),
		estimator: qos.NewRttEstimator(),
	}
}

func (s *Scanner) Capabilities() scan.Capabilities {
	return s.inner.Capabilities()
}

// Probe acquires a concurrency token before delegating, bounds the attempt
// to the current RTO estimate, and feeds the verdict back into both the
// limiter (success/failure) and the estimator (observed RTT).
func (s *Scanner) Probe(ctx context.Context, address net.IP, port int) (scan.PortState, time.Duration) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return scan.StateFiltered, 0
	}
	defer s.limiter.Release()

	probeCtx := ctx
	if rto := s.estimator.Timeout(); rto > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, rto)
		defer cancel()
	}

	state, rtt := s.inner.Probe(probeCtx, address, port)

	switch state {
	case scan.StateOpen, scan.StateClosed:
		s.limiter.OnSuccess()
		s.estimator.Update(rtt)
	case scan.StateFiltered:
		s.limiter.OnFailure()
	}

	return state, rtt
}
