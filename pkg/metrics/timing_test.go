package metrics

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestRecordStats(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test", 10*time.Millisecond)

	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)
	m.Record(12 * time.Millisecond)

	s := m.Stats()
	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	if s.TotalMs != 18 || s.AvgMs != 6 {
		t.Errorf("TotalMs = %v, AvgMs = %v", s.TotalMs, s.AvgMs)
	}
	if s.MinMs != 2 || s.MaxMs != 12 {
		t.Errorf("MinMs = %v, MaxMs = %v", s.MinMs, s.MaxMs)
	}
	if s.BudgetMs != 10 || s.OverBudget != 1 {
		t.Errorf("BudgetMs = %v, OverBudget = %d", s.BudgetMs, s.OverBudget)
	}

	m.Reset()
	if m.Stats() != (TimingStats{Name: "test", BudgetMs: 10}) {
		t.Errorf("after Reset: %+v", m.Stats())
	}
}

func TestRecordConcurrent(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("concurrent", 0)
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			m.Record(d)
		}(time.Duration(i) * time.Microsecond)
	}
	wg.Wait()

	s := m.Stats()
	if s.Count != 50 {
		t.Errorf("Count = %d, want 50", s.Count)
	}
	if s.MinMs != 0.001 || s.MaxMs != 0.05 {
		t.Errorf("MinMs = %v, MaxMs = %v", s.MinMs, s.MaxMs)
	}
}

func TestDisabledRecordsNothing(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("off", 0)
	m.Record(time.Millisecond)
	Timer(m)()
	if m.Count() != 0 {
		t.Errorf("Count = %d while disabled", m.Count())
	}
}

func TestTimer(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("timer", 0)
	stop := Timer(m)
	time.Sleep(time.Millisecond)
	stop()
	if m.Count() != 1 || m.Stats().MaxMs < 1 {
		t.Errorf("Timer stats = %+v", m.Stats())
	}
	// nil metrics are ignored
	Timer(nil)()
}

func TestWriteJSON(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	defer ResetAll()
	DeckLoad.Record(3 * time.Millisecond)

	var buf bytes.Buffer
	if err := WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var doc struct {
		Enabled bool          `json:"enabled"`
		Timings []TimingStats `json:"timings"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if !doc.Enabled || len(doc.Timings) != 1 || doc.Timings[0].Name != "deck_load" {
		t.Errorf("document = %+v", doc)
	}
}
