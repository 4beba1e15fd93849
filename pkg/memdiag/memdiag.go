// Package memdiag samples Go heap usage so batch commands can compare what
// they actually allocated against the memory budget they were given.
package memdiag

import (
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eunmann/crushtool/pkg/humanfmt"
)

// Stats is the subset of runtime.MemStats worth logging.
type Stats struct {
	HeapAlloc uint64
	HeapSys   uint64
	Sys       uint64
	NumGC     uint32
}

// Read reads current memory statistics.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc: m.HeapAlloc,
		HeapSys:   m.HeapSys,
		Sys:       m.Sys,
		NumGC:     m.NumGC,
	}
}

// Tracker records the peak heap seen across samples. It is safe for
// concurrent use by workers.
type Tracker struct {
	mu       sync.Mutex
	samples  int
	peakHeap uint64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Sample reads the heap and folds it into the peak.
func (t *Tracker) Sample() Stats {
	s := Read()
	t.observe(s.HeapAlloc)
	return s
}

func (t *Tracker) observe(heap uint64) {
	t.mu.Lock()
	t.samples++
	if heap > t.peakHeap {
		t.peakHeap = heap
	}
	t.mu.Unlock()
}

// PeakHeap returns the largest heap allocation sampled.
func (t *Tracker) PeakHeap() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peakHeap
}

// Samples returns how many samples were taken.
func (t *Tracker) Samples() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.samples
}

// ExceedsBudget reports whether the peak heap passed budgetTotal.
func (t *Tracker) ExceedsBudget(budgetTotal uint64) bool {
	return budgetTotal > 0 && t.PeakHeap() > budgetTotal
}

// LogWithBudget logs a final sample next to the budget at debug level, and
// warns when the peak heap outgrew the budget.
func (t *Tracker) LogWithBudget(log zerolog.Logger, stage string, budgetTotal uint64) {
	stats := t.Sample()
	peak := t.PeakHeap()

	log.Debug().
		Str("stage", stage).
		Str("heap_alloc", humanfmt.Bytes(int64(stats.HeapAlloc))).
		Str("heap_sys", humanfmt.Bytes(int64(stats.HeapSys))).
		Str("sys_total", humanfmt.Bytes(int64(stats.Sys))).
		Str("peak_heap", humanfmt.Bytes(int64(peak))).
		Str("budget_total", humanfmt.Bytes(int64(budgetTotal))).
		Uint32("num_gc", stats.NumGC).
		Int("samples", t.Samples()).
		Msg("memory stats")

	if t.ExceedsBudget(budgetTotal) {
		log.Warn().
			Str("stage", stage).
			Str("peak_heap", humanfmt.Bytes(int64(peak))).
			Str("budget_total", humanfmt.Bytes(int64(budgetTotal))).
			Msg("peak heap exceeded memory budget")
	}
}
