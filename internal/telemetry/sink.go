// Package telemetry carries named numeric observations out of the core.
// Sinks never influence control flow; a failed or absent sink changes
// nothing about scheduling decisions.
package telemetry

import (
	"sync"
	"time"

	"layerd/pkg/types"
)

// Sink receives observations from the scheduler and arena. Implementations
// must be lightweight and non-blocking; no method may panic.
type Sink interface {
	// ArenaUsage reports the current and total arena bytes.
	ArenaUsage(used, capacity int64)
	// LayerLoad reports the wall-clock duration of one layer load.
	LayerLoad(id string, d time.Duration)
	// InferenceLatency reports the duration of one full forward pass.
	InferenceLatency(d time.Duration)
	// QuotaExceeded reports one quota escalation and which branch fired.
	QuotaExceeded(branch string)
	// Eviction reports one eviction of the resident set.
	Eviction()
	// Load reports one completed layer load.
	Load()
	// Exit reports the outcome indicator of one finished run.
	Exit(level types.ExitLevel)
}

// Branch labels recorded with QuotaExceeded.
const (
	BranchEvictRetry    = "evict_retry"
	BranchEarlyExit     = "early_exit"
	BranchRejectRequest = "reject_request"
)

// Nop drops all observations; the default when no sink is configured.
type Nop struct{}

func (Nop) ArenaUsage(int64, int64)          {}
func (Nop) LayerLoad(string, time.Duration)  {}
func (Nop) InferenceLatency(time.Duration)   {}
func (Nop) QuotaExceeded(string)             {}
func (Nop) Eviction()                        {}
func (Nop) Load()                            {}
func (Nop) Exit(types.ExitLevel)             {}

// Observation is one captured data point, for tests.
type Observation struct {
	Name  string
	Label string
	Value float64
}

// Memory stores observations in-memory for tests.
type Memory struct {
	mu  sync.Mutex
	obs []Observation
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) record(o Observation) {
	m.mu.Lock()
	m.obs = append(m.obs, o)
	m.mu.Unlock()
}

func (m *Memory) ArenaUsage(used, capacity int64) {
	m.record(Observation{Name: "arena_usage_bytes", Value: float64(used)})
	m.record(Observation{Name: "arena_capacity_bytes", Value: float64(capacity)})
}

func (m *Memory) LayerLoad(id string, d time.Duration) {
	m.record(Observation{Name: "layer_load_seconds", Label: id, Value: d.Seconds()})
}

func (m *Memory) InferenceLatency(d time.Duration) {
	m.record(Observation{Name: "inference_seconds", Value: d.Seconds()})
}

func (m *Memory) QuotaExceeded(branch string) {
	m.record(Observation{Name: "quota_exceeded_total", Label: branch, Value: 1})
}

func (m *Memory) Eviction() { m.record(Observation{Name: "evictions_total", Value: 1}) }
func (m *Memory) Load()     { m.record(Observation{Name: "loads_total", Value: 1}) }

func (m *Memory) Exit(level types.ExitLevel) {
	m.record(Observation{Name: "exit_total", Label: string(level), Value: 1})
}

// Observations returns a copy of everything recorded so far.
func (m *Memory) Observations() []Observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Observation, len(m.obs))
	copy(out, m.obs)
	return out
}

// Count returns how many observations with the given name (and label, when
// non-empty) were recorded.
func (m *Memory) Count(name, label string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.obs {
		if o.Name == name && (label == "" || o.Label == label) {
			n++
		}
	}
	return n
}
