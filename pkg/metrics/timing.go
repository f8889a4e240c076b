// Package metrics provides performance instrumentation for reel.
//
// Timing metrics cover the hot paths of the presentation loop: animation
// frames, carousel layout, rendering, deck and asset loading. Metrics with a
// budget also count the measurements that exceeded it, which is how dropped
// frames show up.
//
// Collection is enabled by default and can be disabled with REEL_METRICS=0.
//
//	func (c *Controller) Layout(w, h float64) {
//	    defer metrics.Timer(metrics.CarouselLayout)()
//	    ...
//	}
package metrics

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("REEL_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool { return enabled.Load() }

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric accumulates durations of one named operation. It is safe for
// concurrent use.
type TimingMetric struct {
	name   string
	budget time.Duration // zero: no budget

	count atomic.Int64
	total atomic.Int64 // ns
	max   atomic.Int64 // ns
	min   atomic.Int64 // ns, 0 until the first sample
	over  atomic.Int64
}

func newTimingMetric(name string, budget time.Duration) *TimingMetric {
	return &TimingMetric{name: name, budget: budget}
}

// Record adds one measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled.Load() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	if m.budget > 0 && d > m.budget {
		m.over.Add(1)
	}
	for {
		old := m.max.Load()
		if ns <= old || m.max.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.min.Load()
		if (old != 0 && ns >= old) || m.min.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Budget returns the duration a single measurement should stay under.
func (m *TimingMetric) Budget() time.Duration { return m.budget }

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a snapshot of the metric.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.total.Load()
	s := TimingStats{
		Name:       m.name,
		Count:      count,
		TotalMs:    ms(total),
		MaxMs:      ms(m.max.Load()),
		MinMs:      ms(m.min.Load()),
		OverBudget: m.over.Load(),
	}
	if count > 0 {
		s.AvgMs = ms(total / count)
	}
	if m.budget > 0 {
		s.BudgetMs = ms(m.budget.Nanoseconds())
	}
	return s
}

func ms(ns int64) float64 { return float64(ns) / 1e6 }

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(0)
	m.over.Store(0)
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name       string  `json:"name"`
	Count      int64   `json:"count"`
	TotalMs    float64 `json:"total_ms"`
	AvgMs      float64 `json:"avg_ms"`
	MaxMs      float64 `json:"max_ms"`
	MinMs      float64 `json:"min_ms,omitempty"`
	BudgetMs   float64 `json:"budget_ms,omitempty"`
	OverBudget int64   `json:"over_budget,omitempty"`
}

// Timer returns a function that records the time elapsed since the call.
func Timer(m *TimingMetric) func() {
	if !enabled.Load() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// frameBudget is one frame at 60 fps.
const frameBudget = time.Second / 60

// Global timing metrics for various operations.
var (
	TransitionFrame = newTimingMetric("transition_frame", frameBudget)
	CarouselLayout  = newTimingMetric("carousel_layout", frameBudget)
	StepChange      = newTimingMetric("step_change", frameBudget)
	UIRender        = newTimingMetric("ui_render", frameBudget)
	DeckLoad        = newTimingMetric("deck_load", 0)
	AssetLoad       = newTimingMetric("asset_load", 0)
	SnapshotExport  = newTimingMetric("snapshot_export", 0)
)

// AllTimingMetrics returns all registered timing metrics.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{
		TransitionFrame,
		CarouselLayout,
		StepChange,
		UIRender,
		DeckLoad,
		AssetLoad,
		SnapshotExport,
	}
}

// ResetAll resets all timing metrics.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
}

// WriteJSON writes the stats of every metric with data as an indented JSON
// document.
func WriteJSON(w io.Writer) error {
	doc := struct {
		Enabled bool          `json:"enabled"`
		Timings []TimingStats `json:"timings"`
	}{Enabled: Enabled(), Timings: []TimingStats{}}
	for _, m := range AllTimingMetrics() {
		if m.Count() > 0 {
			doc.Timings = append(doc.Timings, m.Stats())
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
