package arena

import (
	"sync"
	"testing"
)

const mb = int64(1 << 20)

func TestNewCommitsRegion(t *testing.T) {
	a, err := New(1 * mb)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.Capacity() != 1*mb {
		t.Fatalf("capacity=%d want %d", a.Capacity(), 1*mb)
	}
	if a.Used() != 0 || a.Free() != 1*mb {
		t.Fatalf("fresh arena used=%d free=%d", a.Used(), a.Free())
	}
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	for _, c := range []int64{0, -1} {
		if _, err := New(c); err == nil {
			t.Fatalf("expected error for capacity %d", c)
		}
	}
}

func TestAllocAdvancesAndAligns(t *testing.T) {
	a, err := New(1 * mb)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h1, err := a.Alloc(1000)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if h1.Offset() != 0 || h1.Len() != 1000 {
		t.Fatalf("unexpected handle: off=%d len=%d", h1.Offset(), h1.Len())
	}
	h2, err := a.Alloc(1000)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	// second allocation starts at the cursor aligned up to 32
	if h2.Offset() != 1024 {
		t.Fatalf("expected aligned offset 1024, got %d", h2.Offset())
	}
	if h2.Offset()%Alignment != 0 {
		t.Fatalf("offset %d not aligned", h2.Offset())
	}
	// windows must not overlap
	if h1.Offset()+h1.Len() > h2.Offset() {
		t.Fatalf("allocations overlap: %v %v", h1, h2)
	}
	if len(a.Bytes(h2)) != 1000 {
		t.Fatalf("bytes len=%d", len(a.Bytes(h2)))
	}
}

func TestAllocOutOfMemoryCommitsNothing(t *testing.T) {
	a, err := New(1 * mb)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Alloc(600 * 1024); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	before := a.Used()
	_, err = a.Alloc(500 * 1024)
	if err == nil || !IsOutOfMemory(err) {
		t.Fatalf("expected out of memory, got %v", err)
	}
	oom := err.(OutOfMemoryError)
	if oom.Requested != 500*1024 {
		t.Fatalf("requested=%d", oom.Requested)
	}
	if oom.Available >= 500*1024 {
		t.Fatalf("available=%d should be < request", oom.Available)
	}
	if a.Used() != before {
		t.Fatalf("failed alloc moved cursor: before=%d after=%d", before, a.Used())
	}
}

func TestSingleAllocationLargerThanCapacityFails(t *testing.T) {
	a, err := New(1 * mb)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Alloc(2 * mb); !IsOutOfMemory(err) {
		t.Fatalf("expected out of memory, got %v", err)
	}
	if a.Used() != 0 {
		t.Fatalf("used=%d after failed oversize alloc", a.Used())
	}
}

func TestResetRewindsToZero(t *testing.T) {
	a, err := New(1 * mb)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 8; i++ {
		if _, err := a.Alloc(1024); err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
	}
	a.Reset()
	if a.Used() != 0 {
		t.Fatalf("used=%d after reset", a.Used())
	}
	// the whole region is reusable after a reset
	if _, err := a.Alloc(1 * mb); err != nil {
		t.Fatalf("full-capacity alloc after reset: %v", err)
	}
}

func TestUsedNeverExceedsCapacity(t *testing.T) {
	a, err := New(1 * mb)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sizes := []int64{100, 4096, 31, 32, 33, 512 * 1024, 600 * 1024, 1, 1 * mb}
	for round := 0; round < 4; round++ {
		for _, s := range sizes {
			_, _ = a.Alloc(s)
			if a.Used() > a.Capacity() {
				t.Fatalf("invariant violated: used=%d capacity=%d", a.Used(), a.Capacity())
			}
		}
		a.Reset()
		if a.Used() != 0 {
			t.Fatalf("used=%d after reset", a.Used())
		}
	}
}

func TestPeakSurvivesReset(t *testing.T) {
	a, err := New(1 * mb)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Alloc(700 * 1024); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	a.Reset()
	if _, err := a.Alloc(1024); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if a.Peak() != 700*1024 {
		t.Fatalf("peak=%d want %d", a.Peak(), 700*1024)
	}
}

func TestSnapshotMatchesProducerView(t *testing.T) {
	a, err := New(1 * mb)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Alloc(4096); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	s := a.Snapshot()
	if s.Used != a.Used() || s.Capacity != a.Capacity() || s.Peak != a.Peak() {
		t.Fatalf("snapshot %+v diverges from used=%d cap=%d peak=%d", s, a.Used(), a.Capacity(), a.Peak())
	}
}

// The single-producer guard must fail deterministically under concurrent
// mutation rather than corrupt the cursor: every Alloc either succeeds
// atomically or panics, so the final Used is an exact sum of the winners.
func TestConcurrentMutationFailsDeterministically(t *testing.T) {
	a, err := New(8 * mb)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	const workers = 8
	const perWorker = 200
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				func() {
					defer func() { _ = recover() }() // guard panic is the expected failure mode
					if _, err := a.Alloc(32); err == nil {
						mu.Lock()
						succeeded++
						mu.Unlock()
					}
				}()
			}
		}()
	}
	wg.Wait()
	// all sizes are 32 and 32-aligned, so used must be exactly 32*succeeded
	if got, want := a.Used(), int64(32*succeeded); got != want {
		t.Fatalf("cursor corrupted: used=%d, %d successful allocs imply %d", got, succeeded, want)
	}
}
