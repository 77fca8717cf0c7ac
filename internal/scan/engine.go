package scan

import (
	"context"
	"net"
	"time"
)

// Engine is the C7 façade: it composes the probe iterator, FD budgeter,
// scanner variant, retry policy, pipeline and accumulator into a single
// scan over one or more targets.
type Engine struct {
	budgeter *FDBudgeter

	heartbeats chan HeartbeatEvent

	// scanWrap, when set, decorates the selected PortScanner before it is
	// wrapped in the retry policy. This is the seam an optional collaborator
	// (rate limiting, adaptive concurrency) attaches through, without this
	// package importing any of them.
	scanWrap func(PortScanner) PortScanner
}

// NewEngine builds a ready-to-use Engine. The heartbeat channel is buffered
// and drop-on-full: a slow or absent consumer never back-pressures a scan.
func NewEngine() *Engine {
	return &Engine{
		budgeter:   NewFDBudgeter(),
		heartbeats: make(chan HeartbeatEvent, 256),
	}
}

// WithScannerWrap registers a decorator applied to the selected PortScanner
// on every subsequent Scan call, before the retry policy wraps it. Passing
// nil clears any previously registered decorator. Returns e for chaining.
func (e *Engine) WithScannerWrap(wrap func(PortScanner) PortScanner) *Engine {
	e.scanWrap = wrap
	return e
}

// Heartbeats exposes the fire-and-forget progress stream described in §6.
// Callers that never read from it lose nothing but progress events.
func (e *Engine) Heartbeats() <-chan HeartbeatEvent {
	return e.heartbeats
}

// Result is the aggregate output of one Scan call: every HostResult in
// address order plus scan-wide statistics summed across hosts.
type Result struct {
	Hosts []HostResult
	Stats ScanStats
}

// Scan runs cfg to completion or until ctx is cancelled. Per §4.7, the only
// errors returned here are fatal-to-scan conditions: an unsupported
// technique with no fallback permitted, or cancellation. Everything else
// (unreachable hosts, refused/filtered ports, malformed replies) is
// absorbed into the returned HostResults.
func (e *Engine) Scan(ctx context.Context, cfg *ScanConfig) (Result, error) {
	scanner, cleanup, err := e.selectScanner(cfg)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	if e.scanWrap != nil {
		scanner = e.scanWrap(scanner)
	}

	batchOverride := cfg.BatchSize
	if batchOverride == 0 {
		if pref := scanner.Capabilities().PreferredBatch; pref > 0 {
			batchOverride = pref
		}
	}
	width := e.budgeter.Compute(batchOverride)

	retryScanner := NewRetryScanner(scanner, cfg.normalizedMaxRetries(), cfg.normalizedTimeout())

	var out Result
	var cancelled bool

	for _, addr := range excludeAddresses(cfg.Addresses, cfg.ExcludeAddresses) {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		host := e.scanHost(ctx, addr, cfg, scanner, retryScanner, width)
		out.Hosts = append(out.Hosts, host)
		mergeStats(&out.Stats, &host.Stats)

		if host.State == HostPartial {
			cancelled = true
		}
	}

	if cancelled {
		return out, ErrCancelled
	}
	return out, nil
}

// scanHost runs the full per-host state machine described in §4.7.
func (e *Engine) scanHost(ctx context.Context, addr net.IP, cfg *ScanConfig, scanner PortScanner, retryScanner *RetryScanner, width int) HostResult {
	ports := excludePorts(cfg.Ports, cfg.ExcludePorts)

	if addr.To4() == nil && !scanner.Capabilities().SupportsIPv6 {
		// AddressUnsupported (§7): recorded into this host's result, scan
		// continues to the next host rather than aborting.
		acc := NewResultAccumulator(addr)
		for range ports {
			acc.Record(0, StateFiltered, 0, false)
		}
		result := acc.Finish(HostCompleted, 0)
		result.FatalErr = &addressUnsupportedError{Address: addr}
		return result
	}

	hostCfg := &ScanConfig{Addresses: []net.IP{addr}, Ports: ports, ScanOrder: cfg.normalizedOrder()}
	it := NewProbeIterator(hostCfg)

	acc := NewResultAccumulator(addr)

	heartbeat := func(completed, open int) {
		select {
		case e.heartbeats <- HeartbeatEvent{Address: addr, ProbesCompleted: completed, OpenFound: open}:
		default:
			// drop under pressure, per §6
		}
	}

	pipeline := NewPipeline(retryScanner, width, heartbeat)

	start := time.Now()
	notAttempted := pipeline.Run(ctx, addr, it, acc)
	elapsed := time.Since(start)

	state := HostCompleted
	if ctx.Err() != nil {
		state = HostPartial
	}

	result := acc.Finish(state, notAttempted)
	result.Stats.Elapsed = elapsed
	return result
}

// selectScanner picks the PortScanner variant per §4.3.3 and §4.3.2's
// fallback rule, returning a cleanup func that releases any raw sockets.
func (e *Engine) selectScanner(cfg *ScanConfig) (PortScanner, func(), error) {
	noop := func() {}

	if cfg.normalizedTechnique() != TechniqueSYN {
		return NewConnectScanner(nil), noop, nil
	}

	srcIP := resolveSourceIP(cfg)
	syn, err := NewSYNScanner(srcIP)
	if err == nil {
		return syn, func() { syn.Close() }, nil
	}

	if !cfg.AllowPrivilegeFallback {
		return nil, noop, &ErrTechniqueUnsupported{Technique: TechniqueSYN, Cause: err}
	}
	return NewConnectScanner(nil), noop, nil
}

func resolveSourceIP(cfg *ScanConfig) net.IP {
	if cfg.SourceInterface != "" {
		if iface, err := net.InterfaceByName(cfg.SourceInterface); err == nil {
			if addrs, err := iface.Addrs(); err == nil {
				for _, a := range addrs {
					if ipNet, ok := a.(*net.IPNet); ok && ipNet.IP.To4() != nil {
						return ipNet.IP
					}
				}
			}
		}
	}
	if len(cfg.Addresses) > 0 {
		if conn, err := net.Dial("udp", net.JoinHostPort(cfg.Addresses[0].String(), "80")); err == nil {
			defer conn.Close()
			if local, ok := conn.LocalAddr().(*net.UDPAddr); ok {
				return local.IP
			}
		}
	}
	return net.IPv4zero
}

func mergeStats(total *ScanStats, host *ScanStats) {
	total.ProbesSent += host.ProbesSent
	total.OpenCount += host.OpenCount
	total.ClosedCount += host.ClosedCount
	total.FilteredCount += host.FilteredCount
	total.RetriedCount += host.RetriedCount
	total.Elapsed += host.Elapsed
}

type addressUnsupportedError struct {
	Address net.IP
}

func (e *addressUnsupportedError) Error() string {
	return "address family unsupported by selected scanner: " + e.Address.String()
}
