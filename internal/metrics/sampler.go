package metrics

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// cpuWindow is the real-time pause between the two /proc/stat reads.
	cpuWindow = 1 * time.Second

	dfTimeout = 5 * time.Second
)

type Sampler struct {
	statPath    string
	meminfoPath string
	window      time.Duration
	sleep       func(time.Duration)
	runDF       func(context.Context) ([]byte, error)
	log         *zap.Logger
}

func NewSampler(log *zap.Logger) *Sampler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sampler{
		statPath:    "/proc/stat",
		meminfoPath: "/proc/meminfo",
		window:      cpuWindow,
		sleep:       time.Sleep,
		runDF:       runDF,
		log:         log,
	}
}

// Sample takes one fresh reading of CPU, memory, and disk utilization.
// The CPU measurement spans a fixed 1-second window and dominates latency.
func (s *Sampler) Sample(ctx context.Context) (Sample, error) {
	snap := Sample{Timestamp: time.Now()}

	cpu, err := s.sampleCPU()
	if err != nil {
		return snap, err
	}
	snap.CPUPercent = cpu

	mem, err := s.sampleMemory()
	if err != nil {
		return snap, err
	}
	snap.MemoryPercent = mem

	disk, err := s.sampleDisk(ctx)
	if err != nil {
		return snap, err
	}
	snap.DiskPercent = disk

	return snap, nil
}

type cpuTicks struct {
	user    uint64
	nice    uint64
	system  uint64
	idle    uint64
	iowait  uint64
	irq     uint64
	softirq uint64
	steal   uint64
}

func (t cpuTicks) total() uint64 {
	return t.user + t.nice + t.system + t.idle + t.iowait + t.irq + t.softirq + t.steal
}

func (t cpuTicks) idleAll() uint64 {
	return t.idle + t.iowait
}

func (s *Sampler) sampleCPU() (float64, error) {
	first, err := readCPUTicks(s.statPath)
	if err != nil {
		return 0, &UnavailableError{Metric: "cpu", Err: err}
	}

	s.sleep(s.window)

	second, err := readCPUTicks(s.statPath)
	if err != nil {
		return 0, &UnavailableError{Metric: "cpu", Err: err}
	}

	totalDelta := int64(second.total()) - int64(first.total())
	if totalDelta <= 0 {
		// Clock anomaly or counter reset; report idle rather than divide.
		s.log.Debug("non-positive cpu tick delta, reporting 0.0",
			zap.Int64("total_delta", totalDelta))
		return 0.0, nil
	}

	idleDelta := int64(second.idleAll()) - int64(first.idleAll())
	busy := float64(totalDelta-idleDelta) / float64(totalDelta) * 100.0

	s.log.Debug("cpu sampled",
		zap.Int64("total_delta", totalDelta),
		zap.Int64("idle_delta", idleDelta))

	return round1(clampPercent(busy)), nil
}

func readCPUTicks(path string) (cpuTicks, error) {
	file, err := os.Open(path)
	if err != nil {
		return cpuTicks{}, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "cpu" {
			continue
		}
		return parseCPUTicks(fields[1:])
	}

	if err := scanner.Err(); err != nil {
		return cpuTicks{}, err
	}
	return cpuTicks{}, fmt.Errorf("no aggregate cpu line in %s", path)
}

func parseCPUTicks(fields []string) (cpuTicks, error) {
	if len(fields) < 4 {
		return cpuTicks{}, fmt.Errorf("expected at least 4 tick counters, got %d", len(fields))
	}

	// guest and guest_nice are already folded into user/nice.
	if len(fields) > 8 {
		fields = fields[:8]
	}

	vals := make([]uint64, 8)
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return cpuTicks{}, fmt.Errorf("malformed tick counter %q: %w", f, err)
		}
		vals[i] = v
	}

	return cpuTicks{
		user:    vals[0],
		nice:    vals[1],
		system:  vals[2],
		idle:    vals[3],
		iowait:  vals[4],
		irq:     vals[5],
		softirq: vals[6],
		steal:   vals[7],
	}, nil
}

type memInfo struct {
	total     uint64
	available uint64
	free      uint64
	buffers   uint64
	cached    uint64
}

func (s *Sampler) sampleMemory() (float64, error) {
	info, err := readMemInfo(s.meminfoPath)
	if err != nil {
		return 0, &UnavailableError{Metric: "memory", Err: err}
	}

	if info.total == 0 {
		return 0, &UnavailableError{Metric: "memory", Err: fmt.Errorf("MemTotal missing or zero")}
	}

	available := info.available
	if available == 0 {
		// MemAvailable absent, or genuinely zero; the two are
		// indistinguishable here, so estimate either way.
		available = info.free + info.buffers + info.cached
		s.log.Debug("using meminfo fallback for available memory",
			zap.Uint64("free_kb", info.free),
			zap.Uint64("buffers_kb", info.buffers),
			zap.Uint64("cached_kb", info.cached))
	}

	if available > info.total {
		available = info.total
	}

	used := info.total - available
	pct := float64(used) / float64(info.total) * 100.0

	return round1(clampPercent(pct)), nil
}

func readMemInfo(path string) (memInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return memInfo{}, err
	}
	defer file.Close()

	var info memInfo
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		var dst *uint64
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			dst = &info.total
		case "MemAvailable":
			dst = &info.available
		case "MemFree":
			dst = &info.free
		case "Buffers":
			dst = &info.buffers
		case "Cached":
			dst = &info.cached
		default:
			continue
		}

		val, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return memInfo{}, fmt.Errorf("malformed %s value %q: %w", fields[0], fields[1], err)
		}
		*dst = val
	}

	if err := scanner.Err(); err != nil {
		return memInfo{}, err
	}

	return info, nil
}

func (s *Sampler) sampleDisk(ctx context.Context) (float64, error) {
	out, err := s.runDF(ctx)
	if err != nil {
		return 0, &UnavailableError{Metric: "disk", Err: fmt.Errorf("df: %w", err)}
	}

	pct, err := parseRootCapacity(out)
	if err != nil {
		return 0, &UnavailableError{Metric: "disk", Err: err}
	}

	return pct, nil
}

func runDF(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, dfTimeout)
	defer cancel()

	return exec.CommandContext(ctx, "df", "-P", "/").Output()
}

func parseRootCapacity(out []byte) (float64, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(out)))

	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 || fields[len(fields)-1] != "/" {
			continue
		}

		capacity := strings.TrimSuffix(fields[len(fields)-2], "%")
		pct, err := strconv.ParseFloat(capacity, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed capacity %q: %w", fields[len(fields)-2], err)
		}

		return round1(clampPercent(pct)), nil
	}

	return 0, fmt.Errorf("no root filesystem entry in df output")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
