// Package stats keeps a sliding window of reply lateness samples and
// summarises them for the /stats endpoint.
package stats

import (
	"math"
	"sync"
	"time"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the lateness of the replies in the window
type Summary struct {
	Count  int           `json:"count"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"std_dev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P99    time.Duration `json:"p99"`
	Max    time.Duration `json:"max"`
}

// Window is a fixed size ring of lateness samples, thread safe
type Window struct {
	samples []float64
	next    int
	full    bool
	lock    *sync.Mutex
}

// NewWindow creates a window holding at most size samples
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 1
	}
	return &Window{
		samples: make([]float64, size),
		lock:    new(sync.Mutex),
	}
}

// Record adds a sample, overwriting the oldest one when the window is full
func (w *Window) Record(d time.Duration) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.samples[w.next] = d.Seconds()
	w.next = (w.next + 1) % len(w.samples)
	if w.next == 0 {
		w.full = true
	}
}

// Len returns the number of samples held
func (w *Window) Len() int {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.full {
		return len(w.samples)
	}
	return w.next
}

// Summary computes the statistics of the current samples
func (w *Window) Summary() Summary {
	w.lock.Lock()
	n := w.next
	if w.full {
		n = len(w.samples)
	}
	x := make([]float64, n)
	copy(x, w.samples[:n])
	w.lock.Unlock()

	if n == 0 {
		return Summary{}
	}
	slices.Sort(x)

	mean, std := stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Summary{
		Count:  n,
		Mean:   seconds(mean),
		StdDev: seconds(std),
		P50:    seconds(stat.Quantile(0.5, stat.Empirical, x, nil)),
		P90:    seconds(stat.Quantile(0.9, stat.Empirical, x, nil)),
		P99:    seconds(stat.Quantile(0.99, stat.Empirical, x, nil)),
		Max:    seconds(x[n-1]),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
