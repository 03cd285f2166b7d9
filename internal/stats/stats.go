package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
	cached     bool
	failed     bool
}

// Snapshot is a point-in-time aggregate of render latency samples.
type Snapshot struct {
	Count  int     `json:"count"`
	Cached int     `json:"cached"`
	Failed int     `json:"failed"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Outcome describes how one render finished.
type Outcome int

const (
	Generated Outcome = iota
	CacheHit
	Failed
)

// RenderStats tracks recent render latencies per engine within a rolling
// window.
type RenderStats struct {
	mu      sync.Mutex
	samples map[string][]sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewRenderStats(maxAge time.Duration) *RenderStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &RenderStats{
		samples: make(map[string][]sample),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (s *RenderStats) Record(engine string, d time.Duration, outcome Outcome) {
	if s == nil {
		return
	}
	durationMs := d.Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples[engine] = append(prune(s.samples[engine], now.Add(-s.maxAge)), sample{
		timestamp:  now,
		durationMs: durationMs,
		cached:     outcome == CacheHit,
		failed:     outcome == Failed,
	})
}

// Snapshot aggregates samples for one engine. An empty engine name
// aggregates across all engines.
func (s *RenderStats) Snapshot(engine string) Snapshot {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var all []sample
	for name, list := range s.samples {
		list = prune(list, now.Add(-s.maxAge))
		s.samples[name] = list
		if engine == "" || name == engine {
			all = append(all, list...)
		}
	}
	return aggregate(all)
}

// Engines returns a snapshot per engine seen in the window.
func (s *RenderStats) Engines() map[string]Snapshot {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Snapshot, len(s.samples))
	for name, list := range s.samples {
		list = prune(list, now.Add(-s.maxAge))
		s.samples[name] = list
		if len(list) > 0 {
			out[name] = aggregate(list)
		}
	}
	return out
}

func aggregate(samples []sample) Snapshot {
	if len(samples) == 0 {
		return Snapshot{}
	}
	snap := Snapshot{Count: len(samples)}
	values := make([]int64, 0, len(samples))
	var sum int64
	for _, sm := range samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		if sm.cached {
			snap.Cached++
		}
		if sm.failed {
			snap.Failed++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func prune(samples []sample, cutoff time.Time) []sample {
	writeIdx := 0
	for _, sm := range samples {
		if !sm.timestamp.Before(cutoff) {
			samples[writeIdx] = sm
			writeIdx++
		}
	}
	return samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
