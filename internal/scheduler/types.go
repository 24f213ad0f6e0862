package scheduler

import (
	"time"

	"layerd/internal/arena"
)

// ResidencyState is the lifecycle state of one layer descriptor.
type ResidencyState string

const (
	StateUnloaded ResidencyState = "unloaded"
	StateLoading  ResidencyState = "loading"
	StateResident ResidencyState = "resident"
	StateEvicting ResidencyState = "evicting"
)

// LayerDescriptor tracks one layer for the process lifetime. Only its
// residency state, handle and LastUsed change after construction, and only
// the scheduler mutates them.
type LayerDescriptor struct {
	ID       string
	ByteSize int64
	State    ResidencyState
	LastUsed time.Time

	// handle into the arena, valid only while State == StateResident
	handle arena.Handle
}
