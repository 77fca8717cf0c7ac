package scan

import (
	"net"
	"testing"
	"time"
)

func TestResultAccumulator_OnlyRetainsOpenPorts(t *testing.T) {
	acc := NewResultAccumulator(net.IPv4(1, 1, 1, 1))

	acc.Record(80, StateOpen, 5*time.Millisecond, false)
	acc.Record(81, StateClosed, time.Millisecond, false)
	acc.Record(82, StateFiltered, time.Millisecond, false)

	result := acc.Finish(HostCompleted, 0)

	if len(result.OpenPorts) != 1 {
		t.Fatalf("got %d open ports, want 1", len(result.OpenPorts))
	}
	if result.OpenPorts[0].Port != 80 {
		t.Errorf("got port %d, want 80", result.OpenPorts[0].Port)
	}

	stats := result.Stats.Snapshot()
	if stats.ProbesSent != 3 || stats.OpenCount != 1 || stats.ClosedCount != 1 || stats.FilteredCount != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestResultAccumulator_SortsOpenPortsAscending(t *testing.T) {
	acc := NewResultAccumulator(net.IPv4(1, 1, 1, 1))

	acc.Record(443, StateOpen, time.Millisecond, false)
	acc.Record(22, StateOpen, time.Millisecond, false)
	acc.Record(80, StateOpen, time.Millisecond, false)

	result := acc.Finish(HostCompleted, 0)

	got := []int{result.OpenPorts[0].Port, result.OpenPorts[1].Port, result.OpenPorts[2].Port}
	want := []int{22, 80, 443}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got order %v, want %v", got, want)
		}
	}
}

func TestResultAccumulator_RetriedCountTracksFlag(t *testing.T) {
	acc := NewResultAccumulator(net.IPv4(1, 1, 1, 1))
	acc.Record(80, StateClosed, time.Millisecond, true)
	acc.Record(81, StateClosed, time.Millisecond, false)

	result := acc.Finish(HostCompleted, 3)
	if result.Stats.RetriedCount != 1 {
		t.Errorf("got RetriedCount=%d, want 1", result.Stats.RetriedCount)
	}
	if result.NotAttempted != 3 {
		t.Errorf("got NotAttempted=%d, want 3", result.NotAttempted)
	}
}
