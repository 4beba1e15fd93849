// Package membudget bounds the memory held by concurrent map operations.
//
// Callers reserve an estimate before loading a map and release it when the
// decoded map is dropped. Reservations block until enough of the budget is
// free, so a batch of large maps runs with fewer workers than a batch of
// small ones.
package membudget

import (
	"context"
	"fmt"
	"sync"
)

// DefaultBytes is the budget used when system RAM cannot be detected.
const DefaultBytes uint64 = 2 * 1024 * 1024 * 1024

// RAMFraction is the share of detected RAM used for an automatic budget.
const RAMFraction = 0.25

// Source indicates how a budget was determined.
type Source string

const (
	SourceAuto    Source = "auto-25pct"
	SourceDefault Source = "default"
	SourceCLI     Source = "cli"
	SourceEnv     Source = "env"
)

// Budget is a counting semaphore over bytes. It is safe for concurrent use.
type Budget struct {
	total  uint64
	source Source

	mu    sync.Mutex
	inUse uint64
	wake  chan struct{} // closed and replaced on every Release
}

// New creates a budget of total bytes.
func New(total uint64, source Source) *Budget {
	return &Budget{total: total, source: source, wake: make(chan struct{})}
}

// FromSystemRAM creates a budget of RAMFraction of physical memory, or
// DefaultBytes when it cannot be detected.
func FromSystemRAM() *Budget {
	if ram, ok := systemRAM(); ok && ram > 0 {
		return New(uint64(float64(ram)*RAMFraction), SourceAuto)
	}
	return New(DefaultBytes, SourceDefault)
}

// Total returns the budget size in bytes.
func (b *Budget) Total() uint64 { return b.total }

// Source returns how the budget was determined.
func (b *Budget) Source() Source { return b.source }

// InUse returns the reserved bytes.
func (b *Budget) InUse() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inUse
}

// TryReserve reserves n bytes if they are free right now.
func (b *Budget) TryReserve(n uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tryLocked(n)
}

// Reserve blocks until n bytes are free or ctx is done. A request larger
// than the whole budget is clamped to it, so an oversized map still runs,
// alone.
func (b *Budget) Reserve(ctx context.Context, n uint64) (uint64, error) {
	n = min(n, b.total)
	for {
		b.mu.Lock()
		if b.tryLocked(n) {
			b.mu.Unlock()
			return n, nil
		}
		wake := b.wake
		b.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return 0, fmt.Errorf("reserve %d bytes: %w", n, ctx.Err())
		}
	}
}

func (b *Budget) tryLocked(n uint64) bool {
	if b.inUse+n > b.total {
		return false
	}
	b.inUse += n
	return true
}

// Release returns n bytes to the budget and wakes waiters. Releasing more
// than is reserved empties the budget.
func (b *Budget) Release(n uint64) {
	b.mu.Lock()
	b.inUse -= min(n, b.inUse)
	close(b.wake)
	b.wake = make(chan struct{})
	b.mu.Unlock()
}
