package memdiag

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestReadReportsHeap(t *testing.T) {
	s := Read()
	if s.HeapAlloc == 0 || s.Sys == 0 {
		t.Errorf("Read() = %+v, want non-zero heap and sys", s)
	}
}

func TestTrackerPeak(t *testing.T) {
	tr := NewTracker()
	tr.observe(100)
	tr.observe(300)
	tr.observe(200)
	if got := tr.PeakHeap(); got != 300 {
		t.Errorf("PeakHeap() = %d, want 300", got)
	}
	if got := tr.Samples(); got != 3 {
		t.Errorf("Samples() = %d, want 3", got)
	}
}

func TestTrackerConcurrentSamples(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Sample()
		}()
	}
	wg.Wait()
	if tr.Samples() != 8 {
		t.Errorf("Samples() = %d, want 8", tr.Samples())
	}
	if tr.PeakHeap() == 0 {
		t.Error("PeakHeap() = 0 after sampling")
	}
}

func TestExceedsBudget(t *testing.T) {
	tests := []struct {
		name   string
		peak   uint64
		budget uint64
		want   bool
	}{
		{"under", 10, 100, false},
		{"equal", 100, 100, false},
		{"over", 101, 100, true},
		{"no budget", 101, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			tr.observe(tt.peak)
			if got := tr.ExceedsBudget(tt.budget); got != tt.want {
				t.Errorf("ExceedsBudget(%d) = %v, want %v", tt.budget, got, tt.want)
			}
		})
	}
}

func TestLogWithBudget(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	tr := NewTracker()
	tr.LogWithBudget(log, "verify", 1)

	out := buf.String()
	if !strings.Contains(out, `"message":"memory stats"`) {
		t.Errorf("missing memory stats line: %s", out)
	}
	if !strings.Contains(out, `"stage":"verify"`) {
		t.Errorf("missing stage field: %s", out)
	}
	if !strings.Contains(out, "peak heap exceeded memory budget") {
		t.Errorf("missing budget warning with a 1 byte budget: %s", out)
	}
}
