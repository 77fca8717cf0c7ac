package scan

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// Batch width constants from the FD budgeting policy (§4.2).
const (
	MinBatch = 100
	AvgBatch = 3000
	MaxBatch = 15000

	// fallbackBatch is used when the host OS exposes no resource limit at
	// all (gopsutil returns an error rather than a limit).
	fallbackBatch = 5000
)

// FDBudgeter computes the concurrency ceiling B from the process's current
// soft open-file limit and an optional caller override.
type FDBudgeter struct {
	// rlimitFn is overridable in tests so the policy's branches can be
	// exercised without actually lowering the test process's ulimit.
	rlimitFn func() (uint64, bool)
}

// NewFDBudgeter builds a budgeter that reads the running process's real
// RLIMIT_NOFILE via gopsutil.
func NewFDBudgeter() *FDBudgeter {
	return &FDBudgeter{rlimitFn: currentSoftNoFile}
}

// Compute applies the §4.2 algorithm: desired = batchSize or AvgBatch; pick
// B from U (the soft FD limit) per the tiered policy; clamp to
// [MinBatch, MaxBatch].
func (b *FDBudgeter) Compute(batchSizeOverride int) int {
	desired := batchSizeOverride
	if desired <= 0 {
		desired = AvgBatch
	}

	u, ok := b.rlimitFn()
	if !ok {
		return clampBatch(fallbackBatch)
	}
	limit := int(u)

	var batch int
	switch {
	case limit >= desired:
		batch = desired
	case limit < AvgBatch:
		batch = limit / 2
	case limit > 8000:
		batch = AvgBatch
	default:
		batch = limit - 100
	}

	return clampBatch(batch)
}

func clampBatch(b int) int {
	if b < MinBatch {
		return MinBatch
	}
	if b > MaxBatch {
		return MaxBatch
	}
	return b
}

// currentSoftNoFile reads this process's soft RLIMIT_NOFILE through
// gopsutil, which abstracts the platform-specific rlimit syscall behind one
// cross-platform call. Returns false when the platform exposes no such
// limit.
func currentSoftNoFile() (uint64, bool) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, false
	}

	limits, err := proc.RlimitUsage(false)
	if err != nil {
		return 0, false
	}

	for _, l := range limits {
		if l.Resource == process.RLIMIT_NOFILE {
			return l.Soft, true
		}
	}
	return 0, false
}
