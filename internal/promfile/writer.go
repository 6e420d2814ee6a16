package promfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"vmhealth/internal/health"
	"vmhealth/internal/metrics"
)

// Write renders the sample and verdict as gauges in Prometheus text
// exposition format at path, suitable for node_exporter's textfile
// collector. The file is replaced atomically so a scraper never sees a
// partial write.
func Write(path string, sample metrics.Sample, verdict health.Verdict) error {
	reg := prometheus.NewRegistry()

	gauges := []struct {
		name  string
		help  string
		value float64
	}{
		{"vmhealth_cpu_percent", "Busy CPU percentage over the sampling window.", sample.CPUPercent},
		{"vmhealth_memory_percent", "Used memory percentage.", sample.MemoryPercent},
		{"vmhealth_disk_percent", "Root filesystem used percentage.", sample.DiskPercent},
		{"vmhealth_threshold_percent", "Utilization threshold above which a metric is unhealthy.", verdict.Threshold},
		{"vmhealth_healthy", "1 if all metrics are at or below the threshold, 0 otherwise.", healthyValue(verdict)},
	}

	for _, g := range gauges {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help})
		gauge.Set(g.value)
		if err := reg.Register(gauge); err != nil {
			return fmt.Errorf("failed to register %s: %w", g.name, err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func healthyValue(verdict health.Verdict) float64 {
	if verdict.Overall == health.Healthy {
		return 1
	}
	return 0
}
