package stats

import (
	"testing"
	"time"
)

func TestEmptySummary(t *testing.T) {
	w := NewWindow(4)
	if s := w.Summary(); s.Count != 0 {
		t.Errorf("Summary: got %+v, want zero", s)
	}
}

func TestSummary(t *testing.T) {
	w := NewWindow(10)
	for i := 1; i <= 4; i++ {
		w.Record(time.Duration(i) * 100 * time.Millisecond)
	}
	s := w.Summary()
	if s.Count != 4 {
		t.Fatalf("Count: got %d, want 4", s.Count)
	}
	if d := s.Mean - 250*time.Millisecond; d < -time.Microsecond || d > time.Microsecond {
		t.Errorf("Mean: got %s, want 250ms", s.Mean)
	}
	if d := s.Max - 400*time.Millisecond; d < -time.Microsecond || d > time.Microsecond {
		t.Errorf("Max: got %s, want 400ms", s.Max)
	}
	if s.P50 > s.P90 || s.P90 > s.P99 || s.P99 > s.Max {
		t.Errorf("quantiles out of order: %+v", s)
	}
}

func TestSingleSample(t *testing.T) {
	w := NewWindow(3)
	w.Record(time.Second)
	s := w.Summary()
	if s.StdDev != 0 {
		t.Errorf("StdDev of one sample: got %s, want 0", s.StdDev)
	}
}

func TestWindowOverwritesOldest(t *testing.T) {
	w := NewWindow(3)
	for i := 1; i <= 5; i++ {
		w.Record(time.Duration(i) * time.Second)
	}
	if w.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", w.Len())
	}
	s := w.Summary()
	if d := s.Mean - 4*time.Second; d < -time.Microsecond || d > time.Microsecond {
		t.Errorf("Mean: got %s, want 4s (samples 3,4,5)", s.Mean)
	}
}
