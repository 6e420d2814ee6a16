package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"vmhealth/internal/health"
	"vmhealth/internal/metrics"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatYAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (expected text, json, or yaml)", s)
}

var (
	healthyColor   = color.New(color.FgGreen, color.Bold)
	unhealthyColor = color.New(color.FgRed, color.Bold)
)

type Reporter struct {
	Out     io.Writer
	Explain bool
	Format  Format
}

// Document is the machine-readable report shape for json and yaml output.
type Document struct {
	Timestamp     string   `json:"timestamp" yaml:"timestamp"`
	Healthy       bool     `json:"healthy" yaml:"healthy"`
	Status        string   `json:"status" yaml:"status"`
	Threshold     float64  `json:"threshold" yaml:"threshold"`
	CPUPercent    float64  `json:"cpu_percent" yaml:"cpu_percent"`
	MemoryPercent float64  `json:"memory_percent" yaml:"memory_percent"`
	DiskPercent   float64  `json:"disk_percent" yaml:"disk_percent"`
	Reasons       []string `json:"reasons,omitempty" yaml:"reasons,omitempty"`
}

// Write renders the verdict to the configured output.
func (r *Reporter) Write(sample metrics.Sample, verdict health.Verdict) error {
	switch r.Format {
	case FormatJSON:
		return r.writeJSON(sample, verdict)
	case FormatYAML:
		return r.writeYAML(sample, verdict)
	default:
		return r.writeText(sample, verdict)
	}
}

func (r *Reporter) writeText(sample metrics.Sample, verdict health.Verdict) error {
	status := verdict.Overall.String()
	if verdict.Overall == health.Healthy {
		status = healthyColor.Sprint(status)
	} else {
		status = unhealthyColor.Sprint(status)
	}

	if _, err := fmt.Fprintf(r.Out, "Overall VM health: %s\n", status); err != nil {
		return err
	}

	if !r.Explain {
		return nil
	}

	fmt.Fprintf(r.Out, "Threshold:    %s\n", pct(verdict.Threshold))
	fmt.Fprintf(r.Out, "CPU usage:    %s\n", pct(sample.CPUPercent))
	fmt.Fprintf(r.Out, "Memory usage: %s\n", pct(sample.MemoryPercent))
	fmt.Fprintf(r.Out, "Disk usage:   %s\n", pct(sample.DiskPercent))

	if verdict.Overall == health.Healthy {
		fmt.Fprintf(r.Out, "All metrics are within the %s threshold.\n", pct(verdict.Threshold))
		return nil
	}

	for _, reason := range Reasons(sample, verdict) {
		fmt.Fprintf(r.Out, " - %s\n", reason)
	}
	return nil
}

func (r *Reporter) writeJSON(sample metrics.Sample, verdict health.Verdict) error {
	data, err := json.Marshal(r.document(sample, verdict))
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = r.Out.Write(append(data, '\n'))
	return err
}

func (r *Reporter) writeYAML(sample metrics.Sample, verdict health.Verdict) error {
	data, err := yaml.Marshal(r.document(sample, verdict))
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = r.Out.Write(data)
	return err
}

func (r *Reporter) document(sample metrics.Sample, verdict health.Verdict) Document {
	doc := Document{
		Timestamp:     sample.Timestamp.Format(time.RFC3339),
		Healthy:       verdict.Overall == health.Healthy,
		Status:        verdict.Overall.String(),
		Threshold:     verdict.Threshold,
		CPUPercent:    sample.CPUPercent,
		MemoryPercent: sample.MemoryPercent,
		DiskPercent:   sample.DiskPercent,
	}
	if verdict.Overall == health.NotHealthy {
		doc.Reasons = Reasons(sample, verdict)
	}
	return doc
}

// Reasons returns one line per bad metric naming the metric, its value,
// and the threshold it exceeded.
func Reasons(sample metrics.Sample, verdict health.Verdict) []string {
	var reasons []string

	if verdict.CPUBad {
		reasons = append(reasons, reason("CPU usage", sample.CPUPercent, verdict.Threshold))
	}
	if verdict.MemBad {
		reasons = append(reasons, reason("Memory usage", sample.MemoryPercent, verdict.Threshold))
	}
	if verdict.DiskBad {
		reasons = append(reasons, reason("Disk usage", sample.DiskPercent, verdict.Threshold))
	}

	return reasons
}

func reason(name string, value, threshold float64) string {
	return fmt.Sprintf("%s %s exceeds threshold %s", name, pct(value), pct(threshold))
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}
