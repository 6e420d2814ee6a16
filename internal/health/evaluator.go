package health

import "vmhealth/internal/metrics"

// DefaultThreshold is the fixed utilization percentage above which a
// metric is considered unhealthy.
const DefaultThreshold = 60.0

type Status int

const (
	Healthy Status = iota
	NotHealthy
)

func (s Status) String() string {
	if s == Healthy {
		return "HEALTHY"
	}
	return "NOT HEALTHY"
}

// Verdict is the outcome of evaluating one sample against a threshold.
// Overall is NotHealthy iff at least one bad flag is set.
type Verdict struct {
	Overall   Status
	CPUBad    bool
	MemBad    bool
	DiskBad   bool
	Threshold float64
}

// Evaluate compares each metric against the threshold. Strict
// greater-than: a metric exactly at the threshold is healthy.
func Evaluate(sample metrics.Sample, threshold float64) Verdict {
	v := Verdict{
		CPUBad:    sample.CPUPercent > threshold,
		MemBad:    sample.MemoryPercent > threshold,
		DiskBad:   sample.DiskPercent > threshold,
		Threshold: threshold,
	}

	if v.CPUBad || v.MemBad || v.DiskBad {
		v.Overall = NotHealthy
	}

	return v
}
