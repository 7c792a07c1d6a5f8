package metrics

import (
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("expected count 2, got %d", s.Count)
	}
	if s.MinMs != 2 || s.MaxMs != 4 || s.AvgMs != 3 {
		t.Errorf("unexpected stats: %+v", s)
	}

	m.Reset()
	if m.Count() != 0 {
		t.Errorf("expected reset count 0, got %d", m.Count())
	}
}

func TestDisabledIsNoop(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("off")
	Timer(m)()
	m.Record(time.Second)
	if m.Count() != 0 {
		t.Errorf("expected no recordings while disabled, got %d", m.Count())
	}
}

func TestAllTimingStatsSkipsEmpty(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	Recompute.Record(time.Millisecond)
	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "visible_recompute" {
		t.Errorf("expected only visible_recompute, got %+v", stats)
	}
	ResetAll()
}
