package scan

import (
	"net"
	"sync"
	"time"
)

// ResultAccumulator aggregates (port, state, rtt) tuples for one host into
// a HostResult. Only Open results are ever appended to HostResult.OpenPorts
// (§3's open_ports = exactly Open invariant), so a 65535-port scan on a
// mostly-closed host stores roughly one entry per open port instead of one
// per probed port regardless of scan width; there is no separate
// full-range policy to switch into. Safe for concurrent Record calls from
// many probe goroutines.
type ResultAccumulator struct {
	mu     sync.Mutex
	result HostResult
}

// NewResultAccumulator builds an accumulator for a host.
func NewResultAccumulator(address net.IP) *ResultAccumulator {
	return &ResultAccumulator{
		result: HostResult{
			Address: address,
			State:   HostInit,
		},
	}
}

// Record absorbs one terminal classification. Retried indicates whether the
// probe needed more than one attempt, independent of its final state.
func (a *ResultAccumulator) Record(port int, state PortState, rtt time.Duration, retried bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.result.Stats.record(state, retried)

	if state != StateOpen {
		return
	}

	a.result.OpenPorts = append(a.result.OpenPorts, PortResult{
		Port:  port,
		State: state,
		RTT:   rtt,
	})
}

// Finish sorts the accumulated open ports and marks the host's terminal
// state. It is the only post-processing step the accumulator performs.
func (a *ResultAccumulator) Finish(state HostState, notAttempted int) HostResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.result.State = state
	a.result.NotAttempted = notAttempted
	a.result.SortOpenPorts()

	return a.result
}
