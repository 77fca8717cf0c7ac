package scan

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"portsweep/internal/dialer"
)

// ConnectScanner is the TCP-connect PortScanner variant (§4.3.1). It drives
// a three-way handshake through a dialer.Dialer and classifies the outcome
// purely from the error the dial returns; on success the connection is
// handed to net.Conn's own finalizer rather than explicitly closed, per the
// measured tradeoff the spec calls out.
type ConnectScanner struct {
	dialer dialer.Dialer
}

// NewConnectScanner wraps the given dialer. Passing nil uses the package's
// global default dialer (plain TCP, no proxy).
func NewConnectScanner(d dialer.Dialer) *ConnectScanner {
	if d == nil {
		d = dialer.Get()
	}
	return &ConnectScanner{dialer: d}
}

func (s *ConnectScanner) Capabilities() Capabilities {
	return Capabilities{
		RequiresPrivilege: false,
		SupportsIPv6:      true,
		PreferredBatch:    0, // defer to FD Budgeter
	}
}

func (s *ConnectScanner) Probe(ctx context.Context, address net.IP, port int) (PortState, time.Duration) {
	start := time.Now()

	addr := net.JoinHostPort(address.String(), strconv.Itoa(port))
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)

	if err == nil {
		// No explicit Close(): a syscall per probe for no correctness
		// benefit on the hot path, per the spec's measured tradeoff.
		_ = conn
		return StateOpen, elapsed
	}

	return classifyConnectError(err), elapsed
}

// classifyConnectError implements the §4.3.1 table. It is intentionally a
// closed, ordered set of checks rather than a generic "is it a timeout"
// helper, because the table's Filtered/Closed split is a preserved design
// decision (§9 open question), not something to simplify away.
func classifyConnectError(err error) PortState {
	if errors.Is(err, context.DeadlineExceeded) {
		return StateFiltered
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return StateFiltered
		}

		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return StateClosed
		case errors.Is(opErr.Err, syscall.ECONNRESET):
			return StateFiltered
		case errors.Is(opErr.Err, syscall.EADDRNOTAVAIL), errors.Is(opErr.Err, syscall.EACCES), errors.Is(opErr.Err, syscall.EPERM):
			return StateFiltered
		}
	}

	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return StateFiltered
	}

	return StateClosed
}
