package scan

import "testing"

func withRlimit(u uint64, ok bool) *FDBudgeter {
	return &FDBudgeter{rlimitFn: func() (uint64, bool) { return u, ok }}
}

func TestFDBudgeter_RlimitUnavailableFallsBack(t *testing.T) {
	b := withRlimit(0, false)
	if got := b.Compute(0); got != fallbackBatch {
		t.Errorf("got %d, want fallback %d", got, fallbackBatch)
	}
}

func TestFDBudgeter_OverrideHonoredWhenHeadroomSufficient(t *testing.T) {
	b := withRlimit(10000, true)
	if got := b.Compute(500); got != 500 {
		t.Errorf("got %d, want override 500", got)
	}
}

func TestFDBudgeter_LowUlimitHalves(t *testing.T) {
	b := withRlimit(1000, true) // U < AvgBatch(3000)
	got := b.Compute(0)
	if got != 500 {
		t.Errorf("got %d, want U/2=500", got)
	}
}

func TestFDBudgeter_HighUlimitCapsAtAvgBatch(t *testing.T) {
	// A large override that exceeds the soft limit pushes past the
	// limit>=desired shortcut, exercising the U>8000 branch.
	b := withRlimit(9000, true)
	got := b.Compute(20000)
	if got != AvgBatch {
		t.Errorf("got %d, want AvgBatch=%d", got, AvgBatch)
	}
}

func TestFDBudgeter_MidRangeReservesHeadroom(t *testing.T) {
	b := withRlimit(5000, true) // AvgBatch < U <= 8000, and override exceeds U
	got := b.Compute(20000)
	if got != 4900 {
		t.Errorf("got %d, want U-100=4900", got)
	}
}

func TestFDBudgeter_ResultAlwaysClamped(t *testing.T) {
	b := withRlimit(1000000000, true)
	if got := b.Compute(20000); got > MaxBatch {
		t.Errorf("got %d, want <= MaxBatch=%d", got, MaxBatch)
	}

	b2 := withRlimit(1, true)
	if got := b2.Compute(0); got < MinBatch {
		t.Errorf("got %d, want >= MinBatch=%d", got, MinBatch)
	}
}
