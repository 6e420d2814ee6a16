package metrics

import (
	"context"
	"time"
)

// Sample is one point-in-time reading of host utilization. Every
// percentage is in [0, 100] with one decimal of precision.
type Sample struct {
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent" yaml:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent" yaml:"memory_percent"`
	DiskPercent   float64   `json:"disk_percent" yaml:"disk_percent"`
}

// Source is the interface for any component producing utilization samples.
type Source interface {
	Sample(ctx context.Context) (Sample, error)
}

// UnavailableError reports a metric source that could not be read or
// parsed. It is terminal for the invocation.
type UnavailableError struct {
	Metric string
	Err    error
}

func (e *UnavailableError) Error() string {
	return e.Metric + " measurement unavailable: " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
