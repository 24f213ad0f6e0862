package scheduler

import "fmt"

// fatalError signals a layer whose requirement exceeds total arena capacity.
// No eviction, retry or policy can satisfy it; it is reported, not retried.
type fatalError struct {
	layer     string
	requested int64
	capacity  int64
}

func (e fatalError) Error() string {
	return fmt.Sprintf("layer %s requires %d bytes, exceeding total arena capacity %d", e.layer, e.requested, e.capacity)
}

// StatusCode lets the HTTP layer map this to 422 without importing it.
func (e fatalError) StatusCode() int { return 422 }

// IsFatal reports whether err is an unresolvable capacity failure.
func IsFatal(err error) bool {
	_, ok := err.(fatalError)
	return ok
}

// quotaExhaustedError signals that a request still did not fit after the
// evict-and-retry cycle. The Fatal pre-check should make this unreachable;
// it exists as a defensive guard and escalates through the configured
// policy.
type quotaExhaustedError struct {
	layer     string
	requested int64
	free      int64
}

func (e quotaExhaustedError) Error() string {
	return fmt.Sprintf("layer %s still does not fit after eviction: requested %d bytes, %d free", e.layer, e.requested, e.free)
}

// IsQuotaExhausted reports whether err is a post-eviction admission failure.
func IsQuotaExhausted(err error) bool {
	_, ok := err.(quotaExhaustedError)
	return ok
}

// unknownLayerError signals a layer id absent from the manifest.
type unknownLayerError struct{ id string }

func (e unknownLayerError) Error() string { return "unknown layer: " + e.id }

// StatusCode lets the HTTP layer map this to 404 without importing it.
func (e unknownLayerError) StatusCode() int { return 404 }

// ErrUnknownLayer constructs an unknownLayerError.
func ErrUnknownLayer(id string) error { return unknownLayerError{id: id} }

// IsUnknownLayer reports whether err indicates a layer id not in the manifest.
func IsUnknownLayer(err error) bool {
	_, ok := err.(unknownLayerError)
	return ok
}
