package metrics

import (
	"testing"
	"time"
)

func TestTimingMetric_RecordStats(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("expected count 2, got %d", s.Count)
	}
	if s.MinMs != 2 || s.MaxMs != 4 || s.AvgMs != 3 {
		t.Errorf("unexpected stats %+v", s)
	}

	m.Reset()
	if m.Count() != 0 {
		t.Error("expected reset to clear count")
	}
}

func TestTimingMetric_Disabled(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("off")
	m.Record(time.Millisecond)
	Timer(m)()
	if m.Count() != 0 {
		t.Errorf("expected no measurements while disabled, got %d", m.Count())
	}
}

func TestAllTimingStats_OnlyWithData(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	BuildDuration.Record(time.Millisecond)
	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "build" {
		t.Errorf("expected only build stats, got %+v", stats)
	}
	ResetAll()
}
