package reporter

import (
	"encoding/csv"
	"fmt"
	"os"

	"portsweep/internal/scan"
)

// CsvReporter writes a scan.Result to a single CSV file, one row per open
// port (or a single "-" row for a host with none), stamped with a UTF-8 BOM
// so Excel doesn't mangle it.
type CsvReporter struct {
	FilePath string
}

func NewCsvReporter(filePath string) *CsvReporter {
	return &CsvReporter{FilePath: filePath}
}

func (r *CsvReporter) Report(result scan.Result) error {
	headers, rows := hostRows(result)
	if len(rows) == 0 {
		return fmt.Errorf("reporter: no results to export")
	}

	f, err := os.Create(r.FilePath)
	if err != nil {
		return fmt.Errorf("reporter: create csv file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("\xEF\xBB\xBF"); err != nil {
		return fmt.Errorf("reporter: write bom: %w", err)
	}

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(headers); err != nil {
		return fmt.Errorf("reporter: write headers: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("reporter: write rows: %w", err)
	}
	return nil
}
