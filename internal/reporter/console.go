package reporter

import (
	"fmt"

	"github.com/pterm/pterm"

	"portsweep/internal/scan"
)

// ConsoleReporter renders a scan.Result as a pterm table, one row per open
// port (or a single "-" row for a host with none).
type ConsoleReporter struct{}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

func (r *ConsoleReporter) Report(result scan.Result) error {
	headers, rows := hostRows(result)
	if len(rows) == 0 {
		pterm.Warning.Println("no hosts in result")
		return nil
	}

	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)

	if err := pterm.DefaultTable.WithHasHeader(true).WithBoxed(false).WithData(tableData).Render(); err != nil {
		return fmt.Errorf("reporter: render table: %w", err)
	}

	var totalOpen int64
	for _, h := range result.Hosts {
		totalOpen += h.Stats.OpenCount
	}
	pterm.Info.Printfln("%d host(s) scanned, %d open port(s) found", len(result.Hosts), totalOpen)
	return nil
}
