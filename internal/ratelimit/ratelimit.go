// Package ratelimit provides an optional fixed-rate collaborator for
// scan.PortScanner, distinct from the AIMD-based internal/qos limiter. Where
// qos adapts its ceiling to observed RTT/loss, this package enforces a flat
// probes-per-second cap the caller picks up front (e.g. to stay under a
// network's IDS alerting threshold). Neither the scan engine nor the
// pipeline imports this package directly; a caller wires it in by
// registering a decorator through scan.Engine.WithScannerWrap.
package ratelimit

import (
	"context"
	"net"
	"time"

	"golang.org/x/time/rate"

	"portsweep/internal/scan"
)

// LimitedScanner wraps a scan.PortScanner so every Probe call first waits
// for a token from a token-bucket limiter.
type LimitedScanner struct {
	inner   scan.PortScanner
	limiter *rate.Limiter
}

// NewLimitedScanner builds a limiter allowing probesPerSecond steady-state,
// with a burst of the same size so a fresh scan doesn't have to ramp up from
// zero.
func NewLimitedScanner(inner scan.PortScanner, probesPerSecond int) *LimitedScanner {
	if probesPerSecond <= 0 {
		probesPerSecond = 1
	}
	return &LimitedScanner{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(probesPerSecond), probesPerSecond),
	}
}

func (l *LimitedScanner) Capabilities() scan.Capabilities {
	return l.inner.Capabilities()
}

// Probe blocks until the limiter admits this probe or ctx is cancelled,
// whichever comes first. A context cancellation while waiting is reported
// as StateFiltered with zero RTT, matching how the rest of the core treats
// a probe that never got a chance to run.
func (l *LimitedScanner) Probe(ctx context.Context, address net.IP, port int) (scan.PortState, time.Duration) {
	if err := l.limiter.Wait(ctx); err != nil {
		return scan.StateFiltered, 0
	}
	return l.inner.Probe(ctx, address, port)
}
