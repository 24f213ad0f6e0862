package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"layerd/internal/arena"
	"layerd/internal/compute"
	"layerd/internal/quota"
	"layerd/internal/telemetry"
	"layerd/internal/weights"
	"layerd/pkg/types"
)

// Config encapsulates all tunables for Scheduler construction.
type Config struct {
	Arena  *arena.Arena
	Source weights.Source
	Runner compute.Runner
	Sink   telemetry.Sink
	Logger zerolog.Logger
	// KeepResident bounds the residency window; defaults to 1.
	KeepResident int
	// Policy selects the escalation branch when eviction cannot help.
	Policy quota.Policy
}

// Scheduler owns the residency state of every layer and drives the
// load->run->evict cycle against the arena. It is the only mutator of the
// arena and of descriptor states; its mutex serializes the driving loop,
// which is what upholds the arena's single-producer contract.
type Scheduler struct {
	mu sync.Mutex

	arena  *arena.Arena
	source weights.Source
	runner compute.Runner
	sink   telemetry.Sink
	log    zerolog.Logger

	policy       quota.Policy
	keepResident int

	order  []string
	layers map[string]*LayerDescriptor
	window []string // resident ids, least recently used first

	quotaExceeded atomic.Uint64
	evictions     atomic.Uint64
	loads         atomic.Uint64

	startTime time.Time
}

// New builds a scheduler over an existing arena and weight source. The
// descriptor store is populated once from the source manifest and lives for
// the process lifetime.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Arena == nil {
		return nil, fmt.Errorf("scheduler: arena is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("scheduler: weight source is required")
	}
	s := &Scheduler{
		arena:        cfg.Arena,
		source:       cfg.Source,
		runner:       cfg.Runner,
		sink:         cfg.Sink,
		log:          cfg.Logger,
		policy:       cfg.Policy,
		keepResident: cfg.KeepResident,
		layers:       make(map[string]*LayerDescriptor),
		startTime:    time.Now(),
	}
	if s.runner == nil {
		s.runner = compute.FeedForward{}
	}
	if s.sink == nil {
		s.sink = telemetry.Nop{}
	}
	if s.keepResident < 1 {
		s.keepResident = 1
	}
	if s.policy == "" {
		s.policy = quota.PolicyEarlyExit
	}
	for _, l := range cfg.Source.Layers() {
		if l.ByteSize <= 0 {
			return nil, fmt.Errorf("scheduler: layer %s has non-positive size %d", l.ID, l.ByteSize)
		}
		if _, dup := s.layers[l.ID]; dup {
			return nil, fmt.Errorf("scheduler: duplicate layer id %s in manifest", l.ID)
		}
		s.layers[l.ID] = &LayerDescriptor{ID: l.ID, ByteSize: l.ByteSize, State: StateUnloaded}
		s.order = append(s.order, l.ID)
	}
	if len(s.order) == 0 {
		return nil, fmt.Errorf("scheduler: empty layer manifest")
	}
	s.sink.ArenaUsage(0, s.arena.Capacity())
	return s, nil
}

// Ready reports whether the scheduler can accept runs.
func (s *Scheduler) Ready() bool { return s != nil && len(s.order) > 0 }

// Layers returns the manifest in execution order.
func (s *Scheduler) Layers() []types.Layer {
	out := make([]types.Layer, 0, len(s.order))
	for _, id := range s.order {
		d := s.layers[id]
		out = append(out, types.Layer{ID: d.ID, ByteSize: d.ByteSize})
	}
	return out
}

// Usage returns the arena counters through their atomic mirrors; safe for
// concurrent observers such as the system monitor.
func (s *Scheduler) Usage() arena.Usage { return s.arena.Snapshot() }

// QuotaExceededCount returns the monotonic escalation counter.
func (s *Scheduler) QuotaExceededCount() uint64 { return s.quotaExceeded.Load() }

// residentIDs returns the window in LRU order. Callers hold s.mu.
func (s *Scheduler) residentIDs() []string {
	return append([]string(nil), s.window...)
}

// touch moves id to the most-recently-used end of the window. Callers hold
// s.mu.
func (s *Scheduler) touch(id string) {
	for i, w := range s.window {
		if w == id {
			s.window = append(append(s.window[:i:i], s.window[i+1:]...), id)
			return
		}
	}
	s.window = append(s.window, id)
}
