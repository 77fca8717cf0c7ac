// Package reporter renders scan.HostResult values, either to a terminal
// table or a CSV file.
package reporter

import (
	"strconv"

	"portsweep/internal/scan"
)

// TabularData is anything that can be flattened into a header row plus data
// rows for tabular rendering.
type TabularData interface {
	Headers() []string
	Rows() [][]string
}

// Reporter consumes one scan.Result and renders it somewhere.
type Reporter interface {
	Report(result scan.Result) error
}

// MultiReporter fans one Result out to several Reporters, continuing past
// individual failures so one broken sink (a full disk, say) doesn't stop a
// console report the operator is watching live.
type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

func (m *MultiReporter) Report(result scan.Result) error {
	var firstErr error
	for _, r := range m.reporters {
		if err := r.Report(result); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// hostRows flattens a scan.Result's hosts and their open ports into table
// rows shared by both renderers.
func hostRows(result scan.Result) (headers []string, rows [][]string) {
	headers = []string{"Address", "Port", "State", "Service", "RTT"}
	for _, host := range result.Hosts {
		if len(host.OpenPorts) == 0 {
			rows = append(rows, []string{host.Address.String(), "-", host.State.String(), "-", "-"})
			continue
		}
		for _, p := range host.OpenPorts {
			rows = append(rows, []string{
				host.Address.String(),
				portString(p.Port),
				p.State.String(),
				serviceOrDash(p.Service),
				p.RTT.String(),
			})
		}
	}
	return headers, rows
}

func portString(port int) string {
	return strconv.Itoa(port)
}

func serviceOrDash(service string) string {
	if service == "" {
		return "-"
	}
	return service
}
