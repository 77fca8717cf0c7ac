package scan

import (
	"context"
	"net"
	"time"
)

// pipelineResult is what one spawned probe goroutine reports back on
// completion.
type pipelineResult struct {
	port    int
	state   PortState
	rtt     time.Duration
	retried bool
}

// Pipeline drives a continuous-replenishment probe loop against a single
// host (§4.5): it keeps exactly B probes in flight by spawning one new
// probe immediately upon each completion, rather than draining a batch and
// refilling it. This is the component where a scan's throughput becomes a
// near-linear function of B instead of being dominated by per-batch tail
// latency.
type Pipeline struct {
	scanner *RetryScanner
	width   int

	heartbeat func(completed, open int)
}

// NewPipeline builds a pipeline of the given width driving scanner against
// whatever probes it is given. heartbeat may be nil.
func NewPipeline(scanner *RetryScanner, width int, heartbeat func(completed, open int)) *Pipeline {
	if width < 1 {
		width = 1
	}
	return &Pipeline{scanner: scanner, width: width, heartbeat: heartbeat}
}

// Run drains it against address, feeding every terminal result into acc.
// It returns the number of probes that were never spawned because ctx was
// cancelled before the iterator was exhausted (HostResult.NotAttempted).
//
// Protocol, matching §4.5 exactly:
//  1. Spawn up to width probes.
//  2. Await any one completion.
//  3. Immediately pull and spawn the next probe, if the iterator has one
//     and ctx is not done.
//  4. Hand the result to acc.
//  5. Repeat until the iterator is exhausted and the in-flight set is empty.
func (p *Pipeline) Run(ctx context.Context, address net.IP, it *ProbeIterator, acc *ResultAccumulator) (notAttempted int) {
	done := make(chan pipelineResult, p.width)
	inFlight := 0
	completed := 0
	openFound := 0

	spawn := func(probe Probe) {
		inFlight++
		go func() {
			state, rtt, retried := p.scanner.ProbeWithRetries(ctx, probe.Address, probe.Port)
			done <- pipelineResult{port: probe.Port, state: state, rtt: rtt, retried: retried}
		}()
	}

	// Step 1: prime up to width in-flight probes.
	for inFlight < p.width {
		probe, ok := it.Next()
		if !ok {
			break
		}
		spawn(probe)
	}

	// Steps 2-5.
	for inFlight > 0 {
		res := <-done
		inFlight--

		acc.Record(res.port, res.state, res.rtt, res.retried)
		completed++
		if res.state == StateOpen {
			openFound++
		}
		p.emitHeartbeat(completed, openFound)

		if ctx.Err() != nil {
			// Draining: stop pulling new probes, let the remaining
			// in-flight set finish naturally (no forced teardown).
			continue
		}

		probe, ok := it.Next()
		if !ok {
			continue
		}
		spawn(probe)
	}

	// Anything left unpulled in the iterator when we stopped spawning
	// because of cancellation was never attempted.
	remaining := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		remaining++
	}

	return remaining
}

func (p *Pipeline) emitHeartbeat(completed, open int) {
	if p.heartbeat == nil {
		return
	}
	// Best-effort: a panicking or slow renderer must never block the
	// pipeline. The callback itself is expected to be non-blocking (the
	// Engine wires it to a buffered, drop-on-full channel send); this
	// recover is a last-resort guard against the probe body's own
	// contract of "never propagate a fault into the pipeline" extending
	// to its heartbeat side effect too.
	defer func() { _ = recover() }()
	p.heartbeat(completed, open)
}
