// Package scan implements the concurrent port-scan engine: probe iteration,
// FD-budgeted batch sizing, the connect/syn scanner variants, retry policy,
// the continuous-replenishment pipeline and the per-host result accumulator.
package scan

import (
	"net"
	"sort"
	"sync/atomic"
	"time"
)

// PortState is the terminal classification of a single (address, port) probe.
// Once assigned it never transitions.
type PortState int

const (
	// StateUnknown is the zero value and is never a terminal state.
	StateUnknown PortState = iota
	StateOpen
	StateClosed
	StateFiltered
)

func (s PortState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFiltered:
		return "filtered"
	default:
		return "unknown"
	}
}

// Technique selects which PortScanner variant the engine drives.
type Technique string

const (
	TechniqueConnect Technique = "connect"
	TechniqueSYN     Technique = "syn"
)

// ScanOrder controls the sequence C1 emits probes in.
type ScanOrder string

const (
	OrderSerial ScanOrder = "serial"
	OrderRandom ScanOrder = "random"
)

// Probe is an immutable (address, port, attempt) tuple. AttemptIndex is
// consumed only by the retry layer and never appears in a PortResult.
type Probe struct {
	Address      net.IP
	Port         int
	AttemptIndex int
}

// PortResult is the terminal outcome of one (address, port) pair.
type PortResult struct {
	Port    int
	State   PortState
	RTT     time.Duration
	Service string // left empty by the core; populated by external detectors
}

// ScanStats are the per-host counters accumulated during a scan.
// open_count + closed_count + filtered_count always equals probes_sent.
type ScanStats struct {
	ProbesSent    int64
	OpenCount     int64
	ClosedCount   int64
	FilteredCount int64
	RetriedCount  int64
	Elapsed       time.Duration
}

func (s *ScanStats) record(state PortState, retried bool) {
	atomic.AddInt64(&s.ProbesSent, 1)
	switch state {
	case StateOpen:
		atomic.AddInt64(&s.OpenCount, 1)
	case StateClosed:
		atomic.AddInt64(&s.ClosedCount, 1)
	case StateFiltered:
		atomic.AddInt64(&s.FilteredCount, 1)
	}
	if retried {
		atomic.AddInt64(&s.RetriedCount, 1)
	}
}

// Snapshot returns a copy safe to read after the pipeline has stopped
// mutating the counters concurrently.
func (s *ScanStats) Snapshot() ScanStats {
	return ScanStats{
		ProbesSent:    atomic.LoadInt64(&s.ProbesSent),
		OpenCount:     atomic.LoadInt64(&s.OpenCount),
		ClosedCount:   atomic.LoadInt64(&s.ClosedCount),
		FilteredCount: atomic.LoadInt64(&s.FilteredCount),
		RetriedCount:  atomic.LoadInt64(&s.RetriedCount),
		Elapsed:       s.Elapsed,
	}
}

// HostState is the per-host lifecycle position described in §4.7.
type HostState int

const (
	HostInit HostState = iota
	HostRunning
	HostDraining
	HostCompleted
	HostPartial
)

func (s HostState) String() string {
	switch s {
	case HostRunning:
		return "running"
	case HostDraining:
		return "draining"
	case HostCompleted:
		return "completed"
	case HostPartial:
		return "partial"
	default:
		return "init"
	}
}

// HostResult aggregates every terminal PortResult observed for one address.
type HostResult struct {
	Address        net.IP
	OpenPorts      []PortResult
	Stats          ScanStats
	State          HostState
	NotAttempted   int // only nonzero when State == HostPartial
	FatalErr       error
}

// SortOpenPorts orders OpenPorts ascending by port number (§4.6). It does
// not remove duplicate entries; the probe iterator emits each port at most
// once per host, so none arise from a pipeline run.
func (h *HostResult) SortOpenPorts() {
	sort.Slice(h.OpenPorts, func(i, j int) bool {
		return h.OpenPorts[i].Port < h.OpenPorts[j].Port
	})
}

// HeartbeatEvent is a fire-and-forget progress signal. A slow consumer must
// never back-pressure the pipeline; see Engine.Heartbeats.
type HeartbeatEvent struct {
	Address         net.IP
	ProbesCompleted int
	OpenFound       int
}

// ScanConfig is the immutable input handed to Engine.Scan. The core reads
// only these fields; it never touches argv, environment, or config files.
type ScanConfig struct {
	RunID string // correlation id, typically a google/uuid string set by the caller

	Addresses []net.IP
	Ports     []int

	ExcludeAddresses []net.IP
	ExcludePorts     []int

	Timeout    time.Duration // per-attempt deadline, default 1000ms
	MaxRetries int           // clamped to [1,3], default 2

	BatchSize int // 0 means "let the FD Budgeter choose"

	ScanOrder ScanOrder // default OrderSerial
	Technique Technique // default TechniqueConnect

	SourcePort      int    // 0 means "let the OS choose an ephemeral port"
	SourceInterface string // optional binding hint, consumed by raw-SYN variant

	// AllowPrivilegeFallback permits the engine to silently downgrade a
	// TechniqueSYN request to TechniqueConnect when raw sockets are
	// unavailable. When false, lacking privileges surfaces as
	// ErrTechniqueUnsupported instead.
	AllowPrivilegeFallback bool
}

func (c *ScanConfig) normalizedTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 1000 * time.Millisecond
	}
	return c.Timeout
}

func (c *ScanConfig) normalizedMaxRetries() int {
	n := c.MaxRetries
	if n <= 0 {
		n = 2
	}
	if len(c.Ports) >= 60000 && c.MaxRetries == 0 {
		n = 3
	}
	if n < 1 {
		n = 1
	}
	if n > 3 {
		n = 3
	}
	return n
}

func (c *ScanConfig) normalizedOrder() ScanOrder {
	if c.ScanOrder == OrderRandom {
		return OrderRandom
	}
	return OrderSerial
}

func (c *ScanConfig) normalizedTechnique() Technique {
	if c.Technique == TechniqueSYN {
		return TechniqueSYN
	}
	return TechniqueConnect
}
