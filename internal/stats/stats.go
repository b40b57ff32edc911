// Package stats tracks document processing outcomes and latencies.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
}

// LatencySnapshot aggregates successful processing times inside the window.
type LatencySnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// FormatCounts are lifetime outcome counters for one file type.
type FormatCounts struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Snapshot is a point-in-time copy of the tracker.
type Snapshot struct {
	Processed int64                   `json:"processed"`
	Failed    int64                   `json:"failed"`
	Latency   LatencySnapshot         `json:"latency"`
	Formats   map[string]FormatCounts `json:"formats"`
}

// Tracker records per-document outcomes. Latency samples older than the
// window are discarded; counters are kept for the process lifetime.
type Tracker struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	formats map[string]*FormatCounts
	now     func() time.Time
}

// New returns a Tracker with a rolling latency window of maxAge (one hour
// when maxAge <= 0).
func New(maxAge time.Duration) *Tracker {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Tracker{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		formats: make(map[string]*FormatCounts),
		now:     time.Now,
	}
}

// Record notes one processed document. Only successes contribute latency.
func (t *Tracker) Record(fileType string, durationMs int64, failed bool) {
	if durationMs < 0 {
		durationMs = 0
	}
	if fileType == "" {
		fileType = "unknown"
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	fc, ok := t.formats[fileType]
	if !ok {
		fc = &FormatCounts{}
		t.formats[fileType] = fc
	}
	if failed {
		fc.Failed++
		return
	}
	fc.Processed++
	t.pruneLocked(now)
	t.samples = append(t.samples, sample{timestamp: now, durationMs: durationMs})
}

func (t *Tracker) Snapshot() Snapshot {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(now)
	snap := Snapshot{Formats: make(map[string]FormatCounts, len(t.formats))}
	for ft, fc := range t.formats {
		snap.Formats[ft] = *fc
		snap.Processed += fc.Processed
		snap.Failed += fc.Failed
	}
	if len(t.samples) == 0 {
		return snap
	}

	values := make([]int64, 0, len(t.samples))
	var sum int64
	for _, sm := range t.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Latency = LatencySnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
	return snap
}

func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.maxAge)
	keep := t.samples[:0]
	for _, sm := range t.samples {
		if !sm.timestamp.Before(cutoff) {
			keep = append(keep, sm)
		}
	}
	t.samples = keep
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}
	index := float64(len(sorted)-1) * pct / 100.0
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}
