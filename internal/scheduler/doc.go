// Package scheduler decides, layer by layer, whether to load, evict,
// early-exit or reject, keeping the model inside the arena's byte ceiling.
// It is structured into small files by concern:
//
//   - scheduler.go: core Scheduler type, Config, constructor, getters.
//   - types.go: residency states and the per-layer descriptor.
//   - errors.go: error types and helpers (IsFatal, IsQuotaExhausted,
//     IsUnknownLayer).
//   - ensure.go: EnsureResident state machine (accountant query, load,
//     evict-and-retry).
//   - evict.go: whole-window eviction over the arena's full reset.
//   - run.go: the load->run->evict driving loop and policy escalation.
//   - status.go: status projection for the HTTP surface.
//
// The scheduler is the arena's single producer: every mutating path runs
// under its mutex, strictly sequentially. A load completes before its run
// starts, and a run before any evict. External packages should use public
// methods only (New,
// Run, EnsureResident, Status, Layers, Usage).
package scheduler
