package reporter

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portsweep/internal/scan"
)

func sampleResult() scan.Result {
	host := scan.HostResult{
		Address: net.ParseIP("192.168.1.10"),
		OpenPorts: []scan.PortResult{
			{Port: 443, State: scan.StateOpen, RTT: 12 * time.Millisecond},
			{Port: 80, State: scan.StateOpen, RTT: 8 * time.Millisecond},
		},
		State: scan.HostCompleted,
	}
	return scan.Result{Hosts: []scan.HostResult{host}}
}

func TestHostRows_SortedByCaller(t *testing.T) {
	headers, rows := hostRows(sampleResult())
	require.Len(t, headers, 5)
	require.Len(t, rows, 2)
	require.Equal(t, "443", rows[0][1])
	require.Equal(t, "80", rows[1][1])
}

func TestCsvReporter_WritesBOMAndHeaders(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/out.csv"

	r := NewCsvReporter(path)
	require.NoError(t, r.Report(sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, len(data) > 3 && string(data[:3]) == "\xEF\xBB\xBF", "expected UTF-8 BOM prefix")
	require.Contains(t, string(data), "Address,Port,State,Service,RTT")
}

func TestCsvReporter_EmptyResultErrors(t *testing.T) {
	dir := t.TempDir()
	r := NewCsvReporter(dir + "/out.csv")
	require.Error(t, r.Report(scan.Result{}))
}
