package runtime

import (
	"math"
	"sort"
	"sync"
	"time"
)

const latencySampleSize = 256

// StoreStats is a point-in-time view of the dispatches applied to one store.
type StoreStats struct {
	Module         string         `json:"module"`
	Dispatches     uint64         `json:"dispatches"`
	Failures       uint64         `json:"failures"`
	LastActionType string         `json:"last_action_type,omitempty"`
	LastDispatchAt time.Time      `json:"last_dispatch_at"`
	LastError      string         `json:"last_error,omitempty"`
	Latency        LatencyMetrics `json:"latency"`
}

type LatencyMetrics struct {
	AverageNs  int64 `json:"average_ns"`
	P50Ns      int64 `json:"p50_ns"`
	P95Ns      int64 `json:"p95_ns"`
	P99Ns      int64 `json:"p99_ns"`
	LastNs     int64 `json:"last_ns"`
	SampleSize int   `json:"sample_size"`
}

type storeStats struct {
	StoreStats
	window *latencyWindow
}

type dispatchStats struct {
	mu       sync.Mutex
	byModule map[string]*storeStats
}

func newDispatchStats() *dispatchStats {
	return &dispatchStats{byModule: make(map[string]*storeStats)}
}

func (d *dispatchStats) record(module, actionType string, duration time.Duration, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.byModule[module]
	if !ok {
		s = &storeStats{StoreStats: StoreStats{Module: module}, window: newLatencyWindow(latencySampleSize)}
		d.byModule[module] = s
	}
	s.Dispatches++
	s.LastActionType = actionType
	s.LastDispatchAt = time.Now()
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
	}
	s.window.Add(duration)
}

func (d *dispatchStats) snapshot() map[string]StoreStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]StoreStats, len(d.byModule))
	for name, s := range d.byModule {
		snap := s.StoreStats
		snap.Latency = s.window.Snapshot()
		out[name] = snap
	}
	return out
}

type latencyWindow struct {
	samples []int64
	next    int
	filled  int
	last    int64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = latencySampleSize
	}
	return &latencyWindow{samples: make([]int64, size)}
}

func (lw *latencyWindow) Add(d time.Duration) {
	if lw == nil || len(lw.samples) == 0 {
		return
	}
	lw.samples[lw.next] = int64(d)
	lw.last = int64(d)
	lw.next = (lw.next + 1) % len(lw.samples)
	if lw.filled < len(lw.samples) {
		lw.filled++
	}
}

func (lw *latencyWindow) Snapshot() LatencyMetrics {
	var metrics LatencyMetrics
	if lw == nil {
		return metrics
	}
	if lw.filled == 0 {
		metrics.LastNs = lw.last
		return metrics
	}
	samples := make([]int64, lw.filled)
	for i := 0; i < lw.filled; i++ {
		idx := lw.next - lw.filled + i
		if idx < 0 {
			idx += len(lw.samples)
		}
		samples[i] = lw.samples[idx]
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	metrics.SampleSize = lw.filled
	metrics.P50Ns = percentile(samples, 0.50)
	metrics.P95Ns = percentile(samples, 0.95)
	metrics.P99Ns = percentile(samples, 0.99)
	var sum int64
	for _, v := range samples {
		sum += v
	}
	metrics.AverageNs = sum / int64(len(samples))
	metrics.LastNs = lw.last
	return metrics
}

func percentile(samples []int64, quantile float64) int64 {
	if len(samples) == 0 {
		return 0
	}
	if quantile <= 0 {
		return samples[0]
	}
	if quantile >= 1 {
		return samples[len(samples)-1]
	}
	pos := quantile * float64(len(samples)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return samples[lower]
	}
	frac := pos - float64(lower)
	return samples[lower] + int64(float64(samples[upper]-samples[lower])*frac)
}
