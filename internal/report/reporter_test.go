package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"vmhealth/internal/health"
	"vmhealth/internal/metrics"
	"vmhealth/internal/report"
)

func init() {
	color.NoColor = true
}

func sampleAt(cpu, mem, disk float64) metrics.Sample {
	return metrics.Sample{
		Timestamp:     time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		CPUPercent:    cpu,
		MemoryPercent: mem,
		DiskPercent:   disk,
	}
}

func TestWriteTextHealthy(t *testing.T) {
	var buf bytes.Buffer
	r := &report.Reporter{Out: &buf, Format: report.FormatText}

	sample := sampleAt(10.0, 20.0, 30.0)
	require.NoError(t, r.Write(sample, health.Evaluate(sample, 60.0)))

	assert.Equal(t, "Overall VM health: HEALTHY\n", buf.String())
}

func TestWriteTextHealthyExplain(t *testing.T) {
	var buf bytes.Buffer
	r := &report.Reporter{Out: &buf, Explain: true, Format: report.FormatText}

	sample := sampleAt(10.0, 20.0, 30.0)
	require.NoError(t, r.Write(sample, health.Evaluate(sample, 60.0)))

	out := buf.String()
	assert.Contains(t, out, "Overall VM health: HEALTHY\n")
	assert.Contains(t, out, "Threshold:    60.0%")
	assert.Contains(t, out, "CPU usage:    10.0%")
	assert.Contains(t, out, "Memory usage: 20.0%")
	assert.Contains(t, out, "Disk usage:   30.0%")
	assert.Contains(t, out, "All metrics are within the 60.0% threshold.")
	assert.NotContains(t, out, " - ", "healthy report must not contain reason bullets")
}

func TestWriteTextUnhealthyExplain(t *testing.T) {
	var buf bytes.Buffer
	r := &report.Reporter{Out: &buf, Explain: true, Format: report.FormatText}

	sample := sampleAt(75.0, 20.0, 30.0)
	require.NoError(t, r.Write(sample, health.Evaluate(sample, 60.0)))

	out := buf.String()
	assert.Contains(t, out, "Overall VM health: NOT HEALTHY\n")
	assert.Contains(t, out, " - CPU usage 75.0% exceeds threshold 60.0%\n")
	assert.Equal(t, 1, strings.Count(out, " - "), "exactly one reason line expected")
	assert.NotContains(t, out, "within the")
}

func TestWriteTextUnhealthyWithoutExplain(t *testing.T) {
	var buf bytes.Buffer
	r := &report.Reporter{Out: &buf, Format: report.FormatText}

	sample := sampleAt(75.0, 80.0, 90.0)
	require.NoError(t, r.Write(sample, health.Evaluate(sample, 60.0)))

	assert.Equal(t, "Overall VM health: NOT HEALTHY\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	r := &report.Reporter{Out: &buf, Format: report.FormatJSON}

	sample := sampleAt(75.0, 20.0, 30.0)
	require.NoError(t, r.Write(sample, health.Evaluate(sample, 60.0)))

	var doc report.Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.False(t, doc.Healthy)
	assert.Equal(t, "NOT HEALTHY", doc.Status)
	assert.Equal(t, 60.0, doc.Threshold)
	assert.Equal(t, 75.0, doc.CPUPercent)
	assert.Equal(t, 20.0, doc.MemoryPercent)
	assert.Equal(t, 30.0, doc.DiskPercent)
	assert.Equal(t, "2026-08-29T12:00:00Z", doc.Timestamp)
	require.Len(t, doc.Reasons, 1)
	assert.Equal(t, "CPU usage 75.0% exceeds threshold 60.0%", doc.Reasons[0])
}

func TestWriteJSONHealthyOmitsReasons(t *testing.T) {
	var buf bytes.Buffer
	r := &report.Reporter{Out: &buf, Format: report.FormatJSON}

	sample := sampleAt(10.0, 20.0, 30.0)
	require.NoError(t, r.Write(sample, health.Evaluate(sample, 60.0)))

	assert.NotContains(t, buf.String(), "reasons")
	assert.Contains(t, buf.String(), `"healthy":true`)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	r := &report.Reporter{Out: &buf, Format: report.FormatYAML}

	sample := sampleAt(10.0, 20.0, 61.0)
	require.NoError(t, r.Write(sample, health.Evaluate(sample, 60.0)))

	var doc report.Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))

	assert.False(t, doc.Healthy)
	assert.Equal(t, 61.0, doc.DiskPercent)
	require.Len(t, doc.Reasons, 1)
	assert.Contains(t, doc.Reasons[0], "Disk usage")
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"text", "json", "yaml"} {
		got, err := report.ParseFormat(valid)
		require.NoError(t, err)
		assert.Equal(t, report.Format(valid), got)
	}

	_, err := report.ParseFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestReasonsOrder(t *testing.T) {
	sample := sampleAt(75.0, 80.0, 90.0)
	reasons := report.Reasons(sample, health.Evaluate(sample, 60.0))

	require.Len(t, reasons, 3)
	assert.Contains(t, reasons[0], "CPU usage")
	assert.Contains(t, reasons[1], "Memory usage")
	assert.Contains(t, reasons[2], "Disk usage")
}
