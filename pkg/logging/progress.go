package logging

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eunmann/crushtool/pkg/humanfmt"
)

// ProgressTracker counts finished items of a batch and estimates the time
// left. It is safe for concurrent use.
type ProgressTracker struct {
	stage  string
	total  int64
	start  time.Time
	log    zerolog.Logger
	every  int64
	ok     atomic.Int64
	failed atomic.Int64

	mu     sync.Mutex
	recent []time.Duration // last few item durations, oldest first
}

const recentWindow = 10

// NewProgressTracker creates a tracker for total items. A progress event is
// logged every logEvery finished items; 0 disables periodic events.
func NewProgressTracker(stage string, total int64, logEvery int64, log zerolog.Logger) *ProgressTracker {
	return &ProgressTracker{
		stage:  stage,
		total:  total,
		start:  time.Now(),
		log:    log,
		every:  logEvery,
		recent: make([]time.Duration, 0, recentWindow),
	}
}

// RecordSuccess records an item that finished in d.
func (pt *ProgressTracker) RecordSuccess(d time.Duration) {
	pt.ok.Add(1)

	pt.mu.Lock()
	if len(pt.recent) == recentWindow {
		copy(pt.recent, pt.recent[1:])
		pt.recent = pt.recent[:recentWindow-1]
	}
	pt.recent = append(pt.recent, d)
	pt.mu.Unlock()

	pt.maybeLog()
}

// RecordFailure records an item that failed.
func (pt *ProgressTracker) RecordFailure() {
	pt.failed.Add(1)
	pt.maybeLog()
}

func (pt *ProgressTracker) maybeLog() {
	if pt.every <= 0 {
		return
	}
	if done := pt.Done(); done%pt.every == 0 || done == pt.total {
		pt.LogProgress()
	}
}

// Succeeded returns the number of successful items.
func (pt *ProgressTracker) Succeeded() int64 { return pt.ok.Load() }

// Failed returns the number of failed items.
func (pt *ProgressTracker) Failed() int64 { return pt.failed.Load() }

// Done returns the number of finished items, successful or not.
func (pt *ProgressTracker) Done() int64 { return pt.ok.Load() + pt.failed.Load() }

// Total returns the number of items expected.
func (pt *ProgressTracker) Total() int64 { return pt.total }

// Pct returns the finished share in percent. An empty batch is 100% done.
func (pt *ProgressTracker) Pct() float64 {
	if pt.total == 0 {
		return 100
	}
	return float64(pt.Done()) * 100 / float64(pt.total)
}

// ETA estimates the remaining time from recent item durations. Items run
// concurrently, so this is an upper bound.
func (pt *ProgressTracker) ETA() time.Duration {
	left := pt.total - pt.Done()
	if left <= 0 {
		return 0
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()
	if len(pt.recent) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range pt.recent {
		sum += d
	}
	return sum / time.Duration(len(pt.recent)) * time.Duration(left)
}

// Elapsed returns the time since the tracker was created.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.start)
}

// LogProgress emits a progress event at info level.
func (pt *ProgressTracker) LogProgress() {
	e := pt.log.Info().
		Str("event", "progress").
		Str("stage", pt.stage).
		Int64("done", pt.Done()).
		Int64("failed", pt.Failed()).
		Int64("total", pt.total).
		Float64("progress_pct", pt.Pct())
	if eta := pt.ETA(); eta > 0 {
		e = e.Int64("eta_ms", eta.Milliseconds())
		if IsPrettyMode() {
			e = e.Str("eta_h", humanfmt.Duration(eta))
		}
	}
	e.Msg("progress")
}

type field struct {
	key string
	val any
}

// CompletionEvent builds a consistent "something finished" log event.
// Fields are emitted in the order they were added.
type CompletionEvent struct {
	log     zerolog.Logger
	event   string
	stage   string
	elapsed time.Duration
	fields  []field
}

// NewCompletionEvent creates a completion event builder.
func NewCompletionEvent(log zerolog.Logger, event, stage string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{log: log, event: event, stage: stage, elapsed: elapsed}
}

// StageComplete starts a "stage_completed" event.
func StageComplete(log zerolog.Logger, stage string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "stage_completed", stage, elapsed)
}

// FileWritten starts a "file_written" event.
func FileWritten(log zerolog.Logger, stage string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "file_written", stage, elapsed)
}

func (ce *CompletionEvent) add(key string, val any) *CompletionEvent {
	ce.fields = append(ce.fields, field{key, val})
	return ce
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent {
	return ce.add(key, val)
}

// Int adds an int field.
func (ce *CompletionEvent) Int(key string, val int) *CompletionEvent {
	return ce.add(key, val)
}

// Bytes adds a byte count, with a human-readable companion in pretty mode.
func (ce *CompletionEvent) Bytes(key string, n int64) *CompletionEvent {
	ce.add(key, n)
	if IsPrettyMode() {
		ce.add(key+"_h", humanfmt.Bytes(n))
	}
	return ce
}

// Count adds a count, with a human-readable companion in pretty mode.
func (ce *CompletionEvent) Count(key string, n int64) *CompletionEvent {
	ce.add(key, n)
	if IsPrettyMode() {
		ce.add(key+"_h", humanfmt.Count(n))
	}
	return ce
}

// Throughput adds the byte rate over the event's elapsed time.
func (ce *CompletionEvent) Throughput(n int64) *CompletionEvent {
	if ce.elapsed <= 0 {
		return ce
	}
	ce.add("throughput_bps", float64(n)/ce.elapsed.Seconds())
	if IsPrettyMode() {
		ce.add("throughput_h", humanfmt.Throughput(n, ce.elapsed))
	}
	return ce
}

// Log emits the event at info level.
func (ce *CompletionEvent) Log(msg string) {
	ce.emit(ce.log.Info(), msg)
}

// LogDebug emits the event at debug level.
func (ce *CompletionEvent) LogDebug(msg string) {
	ce.emit(ce.log.Debug(), msg)
}

func (ce *CompletionEvent) emit(e *zerolog.Event, msg string) {
	e = e.Str("event", ce.event).
		Str("stage", ce.stage).
		Int64("duration_ms", ce.elapsed.Milliseconds())
	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(ce.elapsed))
	}
	for _, f := range ce.fields {
		e = e.Interface(f.key, f.val)
	}
	e.Msg(msg)
}
