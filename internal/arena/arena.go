// Package arena provides the fixed-capacity bump allocator that backs all
// model memory. One contiguous region is committed up front; allocations
// advance an offset cursor and the only reclamation is a whole-region reset.
package arena

import (
	"fmt"
	"sync/atomic"
)

// Alignment is applied to every allocation, matching the 32-byte tensor
// alignment the weights are written with.
const Alignment = 32

// Handle identifies one allocation inside the arena as (offset, length).
// A Reset invalidates every previously issued handle.
type Handle struct {
	off int64
	n   int64
}

// Offset returns the byte offset of the allocation within the region.
func (h Handle) Offset() int64 { return h.off }

// Len returns the allocation length in bytes.
func (h Handle) Len() int64 { return h.n }

// Usage is a read-only snapshot of the arena counters, safe to take from
// any goroutine.
type Usage struct {
	Used     int64
	Capacity int64
	Peak     int64
}

// Arena is a single-producer bump allocator over one owned byte region.
//
// Concurrency contract: the arena performs no internal synchronization.
// All mutating calls (Alloc, Reset) must come from a single caller; the
// scheduler serializes its driving loop to guarantee this. A cheap atomic
// guard turns a contract violation into a deterministic panic instead of a
// corrupted cursor. Read-only observers use Snapshot, which is backed by
// atomics and never touches the mutation path.
type Arena struct {
	buf      []byte
	capacity int64
	used     int64
	peak     int64

	// mirrors for lock-free observers
	usedGauge atomic.Int64
	peakGauge atomic.Int64

	busy atomic.Bool
}

// New allocates a region of exactly capacity bytes and writes every byte
// once. The write pass is a required side effect, not an optimization
// target: it forces the OS to commit real pages for the declared capacity,
// which is what makes the configured budget correspond to physical memory.
func New(capacity int64) (*Arena, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("arena: capacity must be positive, got %d", capacity)
	}
	a := &Arena{
		buf:      make([]byte, capacity),
		capacity: capacity,
	}
	// Touch every byte so lazily-reserved zero pages become committed ones.
	for i := range a.buf {
		a.buf[i] = 0
	}
	return a, nil
}

// Alloc reserves size bytes, aligned to Alignment, and returns a handle to
// the reserved window. On failure nothing is committed: the cursor is
// unchanged and no partial allocation exists.
func (a *Arena) Alloc(size int64) (Handle, error) {
	a.enter()
	defer a.leave()

	if size <= 0 {
		return Handle{}, fmt.Errorf("arena: allocation size must be positive, got %d", size)
	}
	off := alignUp(a.used, Alignment)
	if off+size > a.capacity {
		return Handle{}, OutOfMemoryError{Requested: size, Available: a.capacity - a.used}
	}
	a.used = off + size
	if a.used > a.peak {
		a.peak = a.used
		a.peakGauge.Store(a.peak)
	}
	a.usedGauge.Store(a.used)
	return Handle{off: off, n: size}, nil
}

// Bytes returns the backing window for h. The slice is valid until the next
// Reset.
func (a *Arena) Bytes(h Handle) []byte {
	return a.buf[h.off : h.off+h.n]
}

// Reset rewinds the cursor to zero, invalidating all outstanding handles.
// Cost is independent of how many allocations were made; the region itself
// is left as-is and stays committed.
func (a *Arena) Reset() {
	a.enter()
	defer a.leave()

	a.used = 0
	a.usedGauge.Store(0)
}

// Used returns the current cursor position in bytes.
func (a *Arena) Used() int64 { return a.used }

// Free returns the bytes remaining before the capacity ceiling.
func (a *Arena) Free() int64 { return a.capacity - a.used }

// Capacity returns the fixed region size in bytes.
func (a *Arena) Capacity() int64 { return a.capacity }

// Peak returns the high-water mark of Used across resets.
func (a *Arena) Peak() int64 { return a.peak }

// Snapshot returns the counters through their atomic mirrors. Safe to call
// concurrently with the producer; used by the monitor and telemetry.
func (a *Arena) Snapshot() Usage {
	return Usage{
		Used:     a.usedGauge.Load(),
		Capacity: a.capacity,
		Peak:     a.peakGauge.Load(),
	}
}

func (a *Arena) enter() {
	if !a.busy.CompareAndSwap(false, true) {
		panic("arena: concurrent mutation detected; the arena is single-producer")
	}
}

func (a *Arena) leave() { a.busy.Store(false) }

func alignUp(n, align int64) int64 {
	return (n + align - 1) &^ (align - 1)
}

// OutOfMemoryError reports a single allocation that cannot be satisfied by
// the remaining capacity. Recoverable by the caller via Reset.
type OutOfMemoryError struct {
	Requested int64
	Available int64
}

func (e OutOfMemoryError) Error() string {
	return fmt.Sprintf("arena: out of memory: requested %d bytes, %d available", e.Requested, e.Available)
}

// IsOutOfMemory reports whether err is an arena out-of-memory condition.
func IsOutOfMemory(err error) bool {
	_, ok := err.(OutOfMemoryError)
	return ok
}
