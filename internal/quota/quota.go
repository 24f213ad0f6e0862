// Package quota holds the stateless admission oracle and the escalation
// policy applied when the memory budget cannot satisfy a request.
package quota

import (
	"fmt"

	"layerd/internal/arena"
)

// Verdict is the accountant's answer for one allocation request.
type Verdict string

const (
	// Allow: the request fits the remaining capacity as-is.
	Allow Verdict = "allow"
	// MustEvict: the request fits total capacity but not the remaining
	// space; the named victims must be evicted first.
	MustEvict Verdict = "must_evict"
	// Fatal: the request exceeds total capacity; no eviction can help.
	Fatal Verdict = "fatal"
)

// Decision is a transient value produced by Decide; it is never persisted.
type Decision struct {
	Verdict Verdict
	// Victims is the minimal set of resident layers to evict, populated
	// only for MustEvict. With whole-region reclamation the minimal set is
	// always everything currently resident.
	Victims []string
}

// Decide is a pure function of the arena counters and the residency window.
// It holds no state and performs no mutation, so the full decision space is
// testable by enumerating (capacity, used, requested) triples.
//
// Admission is measured against the aligned cursor, not the raw used figure:
// the allocator rounds its cursor up to arena.Alignment before placing a
// window, so after an unaligned allocation the next request needs the
// padding too. An oracle that ignored the padding would admit requests the
// arena then refuses.
func Decide(capacity, used, requested int64, resident []string) Decision {
	cursor := (used + arena.Alignment - 1) &^ (arena.Alignment - 1)
	switch {
	case requested > capacity:
		return Decision{Verdict: Fatal}
	case cursor+requested <= capacity:
		return Decision{Verdict: Allow}
	default:
		return Decision{Verdict: MustEvict, Victims: append([]string(nil), resident...)}
	}
}

// Policy selects what happens when eviction-and-retry still cannot satisfy
// a request mid-sequence.
type Policy string

const (
	// PolicyEarlyExit abandons the remaining layers and returns the partial
	// result accumulated so far.
	PolicyEarlyExit Policy = "early_exit"
	// PolicyRejectRequest returns no result at all.
	PolicyRejectRequest Policy = "reject_request"
)

// ParsePolicy validates a configured policy string. Empty selects the
// default (early_exit).
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicyEarlyExit, nil
	case PolicyEarlyExit, PolicyRejectRequest:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("quota: unknown policy %q (want early_exit or reject_request)", s)
	}
}
