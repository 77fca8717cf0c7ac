package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"portsweep/internal/adaptive"
	"portsweep/internal/ratelimit"
	"portsweep/internal/reporter"
	"portsweep/internal/scan"
	"portsweep/internal/targetexpand"
)

type scanFlags struct {
	target     string
	ports      string
	excludeP   string
	technique  string
	order      string
	timeoutMS  int
	maxRetries int
	batchSize  int
	srcIface   string
	csvOut     string
	adaptive   bool
	rateLimit  int
}

func newScanCmd() *cobra.Command {
	f := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan one or more hosts for open ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.target, "target", "t", "", "target spec: CIDR, range, IP, hostname, comma list, or file path")
	flags.StringVarP(&f.ports, "ports", "p", "1-1024", "port spec: comma list and/or ranges, e.g. 22,80,1000-2000")
	flags.StringVar(&f.excludeP, "exclude-ports", "", "ports to exclude, same syntax as --ports")
	flags.StringVar(&f.technique, "technique", "connect", "scan technique: connect or syn")
	flags.StringVar(&f.order, "order", "serial", "probe order: serial or random")
	flags.IntVar(&f.timeoutMS, "timeout-ms", 1000, "per-attempt timeout in milliseconds")
	flags.IntVar(&f.maxRetries, "max-retries", 2, "max attempts per probe, clamped to [1,3]")
	flags.IntVar(&f.batchSize, "batch-size", 0, "override the FD-budgeted concurrency width (0 = auto)")
	flags.StringVar(&f.srcIface, "interface", "", "source interface for raw-SYN scanning")
	flags.StringVar(&f.csvOut, "csv", "", "also write results to this CSV file")
	flags.BoolVar(&f.adaptive, "adaptive", false, "wrap the scanner with AIMD concurrency and RFC 6298 RTO adaptation, within the fixed timeout and batch width")
	flags.IntVar(&f.rateLimit, "rate-limit", 0, "cap probes per second (0 = unlimited, bounded only by the FD-budgeted width)")

	cmd.MarkFlagRequired("target")

	return cmd
}

func runScan(f *scanFlags) error {
	addresses, err := targetexpand.Expand(f.target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}

	ports, err := parsePortSpec(f.ports)
	if err != nil {
		return fmt.Errorf("ports: %w", err)
	}

	var excludePorts []int
	if f.excludeP != "" {
		excludePorts, err = parsePortSpec(f.excludeP)
		if err != nil {
			return fmt.Errorf("exclude-ports: %w", err)
		}
	}

	cfg := &scan.ScanConfig{
		RunID:                  uuid.NewString(),
		Addresses:              addresses,
		Ports:                  ports,
		ExcludePorts:           excludePorts,
		Timeout:                time.Duration(f.timeoutMS) * time.Millisecond,
		MaxRetries:             f.maxRetries,
		BatchSize:              f.batchSize,
		ScanOrder:              scan.ScanOrder(f.order),
		Technique:              scan.Technique(f.technique),
		SourceInterface:        f.srcIface,
		AllowPrivilegeFallback: true,
	}

	engine := scan.NewEngine()
	engine.WithScannerWrap(buildScannerWrap(f))

	go printHeartbeats(engine)

	result, err := engine.Scan(context.Background(), cfg)
	if err != nil && err != scan.ErrCancelled {
		return err
	}

	reporters := []reporter.Reporter{reporter.NewConsoleReporter()}
	if f.csvOut != "" {
		reporters = append(reporters, reporter.NewCsvReporter(f.csvOut))
	}
	if rerr := reporter.NewMultiReporter(reporters...).Report(result); rerr != nil {
		fmt.Printf("reporter error: %v\n", rerr)
	}

	if err == scan.ErrCancelled {
		fmt.Println("scan cancelled before completion; results above are partial")
	}
	return nil
}

// buildScannerWrap composes the optional adaptive and rate-limiting
// collaborators requested on the command line into a single decorator for
// scan.Engine.WithScannerWrap. Order matters: rate limiting (a hard ceiling)
// sits outside adaptive concurrency (a dynamic one), so a configured
// --rate-limit value always wins over whatever the AIMD limiter would admit.
func buildScannerWrap(f *scanFlags) func(scan.PortScanner) scan.PortScanner {
	if !f.adaptive && f.rateLimit <= 0 {
		return nil
	}
	return func(s scan.PortScanner) scan.PortScanner {
		if f.adaptive {
			s = adaptive.NewScanner(s, 4, 1, 256)
		}
		if f.rateLimit > 0 {
			s = ratelimit.NewLimitedScanner(s, f.rateLimit)
		}
		return s
	}
}

func printHeartbeats(engine *scan.Engine) {
	for range engine.Heartbeats() {
		// The console reporter prints a final table; per-probe heartbeats
		// are consumed here only to keep the channel drained for a plain
		// CLI run. A future --progress flag could render these live.
	}
}

// parsePortSpec accepts a comma-separated mix of single ports and
// dash-ranges, e.g. "22,80,1000-2000", and returns the deduplicated,
// expanded port list.
func parsePortSpec(spec string) ([]int, error) {
	seen := make(map[int]bool)
	var out []int

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			lo, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", part, err)
			}
			hi, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", part, err)
			}
			if lo > hi {
				lo, hi = hi, lo
			}
			for p := lo; p <= hi; p++ {
				if !seen[p] {
					seen[p] = true
					out = append(out, p)
				}
			}
			continue
		}

		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", part, err)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no ports specified")
	}
	return out, nil
}
