package scan

import (
	"context"
	"net"
	"time"
)

// RetryScanner wraps a PortScanner to add the §4.4 retry discipline: up to
// MaxRetries attempts, no inter-attempt sleep, Open-dominance, and
// last-attempt-wins among non-Open verdicts.
type RetryScanner struct {
	inner      PortScanner
	maxRetries int
	timeout    time.Duration
}

// NewRetryScanner clamps maxRetries to [1,3] as the spec requires.
func NewRetryScanner(inner PortScanner, maxRetries int, timeout time.Duration) *RetryScanner {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if maxRetries > 3 {
		maxRetries = 3
	}
	return &RetryScanner{inner: inner, maxRetries: maxRetries, timeout: timeout}
}

func (r *RetryScanner) Capabilities() Capabilities {
	return r.inner.Capabilities()
}

// ProbeWithRetries runs the full retry sequence and additionally reports
// whether more than one attempt was made, since that fact feeds
// ScanStats.RetriedCount in the pipeline but is not part of the PortResult
// itself.
func (r *RetryScanner) ProbeWithRetries(ctx context.Context, address net.IP, port int) (PortState, time.Duration, bool) {
	var (
		state   PortState
		elapsed time.Duration
		retried bool
	)

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		state, elapsed = r.inner.Probe(attemptCtx, address, port)
		cancel()

		if attempt > 0 {
			retried = true
		}

		if state == StateOpen {
			// Open-dominance: terminal immediately, no further attempts.
			return state, elapsed, retried
		}

		if ctx.Err() != nil {
			// Scan-wide cancellation: stop retrying, report the last
			// classification obtained (per §4.5 cancellation semantics,
			// no probe is torn down mid-syscall; we simply stop spawning
			// further attempts).
			break
		}
	}

	// Last attempt's verdict wins among non-Open outcomes (§4.4 step 4).
	return state, elapsed, retried
}
