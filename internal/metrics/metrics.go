// Package metrics implements spec.md §4.8: a registry of HdrHistogram-
// backed timing distributions and atomic counters, scoped to one
// orchestrator run rather than a package-level singleton. Grounded on
// internal/stats/stats.go's Monitor, whose HdrHistogram(1, 30_000_000, 3)
// bucketing and atomic counters are kept; its package-level
// sanitizeError and per-second bucket slices are dropped: a package-level
// singleton is exactly the anti-pattern a race orchestrator (one process,
// many concurrent bursts) must not repeat.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/HdrHistogram/hdrhistogram-go"

	"raceforge/internal/models"
)

// Registry accumulates per-state and per-race-burst timing data for one
// workflow run. Both a nil *Registry and the disabled one New returns
// when metrics are off make every method a no-op, so orchestrator code
// never needs an `if enabled` guard at call sites.
type Registry struct {
	enabled bool

	mu          sync.Mutex
	stateHist   map[string]*hdrhistogram.Histogram
	raceSkew    *hdrhistogram.Histogram
	statusCodes sync.Map // map[int]int64
	requests    int64
	failures    int64
}

// New returns an enabled registry, or a disabled no-op one when
// cfg.Enabled is false (spec.md §4.8: metrics collection is opt-in).
func New(cfg models.MetricsConfig) *Registry {
	if !cfg.Enabled {
		return &Registry{enabled: false}
	}
	return &Registry{
		enabled:   true,
		stateHist: make(map[string]*hdrhistogram.Histogram),
		raceSkew:  hdrhistogram.New(1, 30_000_000, 3),
	}
}

// RecordState records one state's execution latency, in microseconds.
func (r *Registry) RecordState(stateName string, elapsedUs int64) {
	if r == nil || !r.enabled {
		return
	}
	atomic.AddInt64(&r.requests, 1)
	r.mu.Lock()
	h, ok := r.stateHist[stateName]
	if !ok {
		h = hdrhistogram.New(1, 30_000_000, 3)
		r.stateHist[stateName] = h
	}
	h.RecordValue(elapsedUs)
	r.mu.Unlock()
}

// RecordFailure increments the failure counter for a state execution
// that ended in a propagated error (spec.md §7).
func (r *Registry) RecordFailure() {
	if r == nil || !r.enabled {
		return
	}
	atomic.AddInt64(&r.failures, 1)
}

// RecordRaceBurst folds a race burst's skew and per-response status
// codes into the registry.
func (r *Registry) RecordRaceBurst(summary *models.RaceBurstSummary) {
	if r == nil || !r.enabled || summary == nil {
		return
	}
	r.mu.Lock()
	r.raceSkew.RecordValue(summary.SkewNs / 1000)
	r.mu.Unlock()
	for status, count := range summary.StatusCounts {
		v, _ := r.statusCodes.LoadOrStore(status, int64(0))
		r.statusCodes.Store(status, v.(int64)+int64(count))
	}
}

// Snapshot is a point-in-time read of the registry, safe to hand to
// internal/report or internal/tui.
type Snapshot struct {
	Requests     int64
	Failures     int64
	StatusCodes  map[int]int64
	StatePercentiles map[string]Percentiles
	// RaceSkewNs holds race-burst skew percentiles in microseconds, not
	// nanoseconds: RecordRaceBurst records SkewNs/1000.
	RaceSkewNs   Percentiles
}

// Percentiles is the p50/p90/p99/max latency quartet spec.md §4.8's
// report section uses.
type Percentiles struct {
	P50, P90, P99, Max int64
}

func percentilesOf(h *hdrhistogram.Histogram) Percentiles {
	if h == nil {
		return Percentiles{}
	}
	return Percentiles{
		P50: h.ValueAtQuantile(50),
		P90: h.ValueAtQuantile(90),
		P99: h.ValueAtQuantile(99),
		Max: h.Max(),
	}
}

// Snapshot copies out the registry's current state. Returns a zero-value
// Snapshot for a disabled/nil registry.
func (r *Registry) Snapshot() Snapshot {
	if r == nil || !r.enabled {
		return Snapshot{StatusCodes: map[int]int64{}}
	}

	snap := Snapshot{
		Requests:         atomic.LoadInt64(&r.requests),
		Failures:         atomic.LoadInt64(&r.failures),
		StatusCodes:      make(map[int]int64),
		StatePercentiles: make(map[string]Percentiles),
	}

	r.statusCodes.Range(func(k, v any) bool {
		snap.StatusCodes[k.(int)] = v.(int64)
		return true
	})

	r.mu.Lock()
	for name, h := range r.stateHist {
		snap.StatePercentiles[name] = percentilesOf(h)
	}
	snap.RaceSkewNs = percentilesOf(r.raceSkew)
	r.mu.Unlock()

	return snap
}
