package scan

import (
	"context"
	"net"
	"time"
)

// Capabilities describes what a PortScanner variant needs and prefers. The
// engine consults this once per scan, at variant-selection time (§4.3.3).
type Capabilities struct {
	RequiresPrivilege bool
	SupportsIPv6      bool
	PreferredBatch    int // 0 means "defer to the FD Budgeter"
}

// PortScanner is the C3 contract: a single-probe primitive. Implementations
// must be safe for concurrent use by many goroutines, must never panic, and
// must never leak a socket on any exit path, including ctx cancellation.
type PortScanner interface {
	// Probe runs exactly one attempt against (address, port), bounded by
	// the deadline carried on ctx. It returns precisely one terminal
	// PortState plus the wall-clock duration of the attempt.
	Probe(ctx context.Context, address net.IP, port int) (PortState, time.Duration)

	// Capabilities reports this variant's privilege/IPv6/batch preferences.
	Capabilities() Capabilities
}
