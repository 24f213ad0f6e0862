package scheduler

import (
	"context"
	"fmt"
	"io"
	"time"

	"layerd/internal/quota"
	"layerd/internal/telemetry"
	"layerd/pkg/types"
)

// EnsureResident makes the given layer resident, following the accountant's
// decision: Allow loads directly; MustEvict evicts the victim set and
// retries exactly once; Fatal surfaces as an unresolvable error without
// touching the arena. Already-resident layers are a no-op beyond an LRU
// touch.
func (s *Scheduler) EnsureResident(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureResidentLocked(ctx, id)
}

func (s *Scheduler) ensureResidentLocked(ctx context.Context, id string) error {
	d, ok := s.layers[id]
	if !ok {
		return ErrUnknownLayer(id)
	}
	if d.State == StateResident {
		d.LastUsed = time.Now()
		s.touch(id)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dec := quota.Decide(s.arena.Capacity(), s.arena.Used(), d.ByteSize, s.residentIDs())
	switch dec.Verdict {
	case quota.Fatal:
		s.log.Error().Str("layer", id).Int64("bytes", d.ByteSize).
			Int64("capacity", s.arena.Capacity()).Msg("layer exceeds total arena capacity")
		return fatalError{layer: id, requested: d.ByteSize, capacity: s.arena.Capacity()}

	case quota.MustEvict:
		s.quotaExceeded.Add(1)
		s.sink.QuotaExceeded(telemetry.BranchEvictRetry)
		s.log.Warn().Str("layer", id).Int64("bytes", d.ByteSize).
			Int64("used", s.arena.Used()).Strs("victims", dec.Victims).
			Msg("quota exceeded, evicting resident layers")
		s.evictAllLocked()
		// retry exactly once against the now-empty arena
		dec = quota.Decide(s.arena.Capacity(), s.arena.Used(), d.ByteSize, nil)
		if dec.Verdict != quota.Allow {
			return quotaExhaustedError{layer: id, requested: d.ByteSize, free: s.arena.Free()}
		}
	}
	return s.loadLocked(d)
}

// loadLocked allocates the layer's arena window and copies its weights in.
func (s *Scheduler) loadLocked(d *LayerDescriptor) error {
	d.State = StateLoading
	start := time.Now()

	h, err := s.arena.Alloc(d.ByteSize)
	if err != nil {
		d.State = StateUnloaded
		return err
	}
	rc, err := s.source.Open(d.ID)
	if err != nil {
		d.State = StateUnloaded
		return fmt.Errorf("open weights for %s: %w", d.ID, err)
	}
	defer rc.Close()
	if _, err := io.ReadFull(rc, s.arena.Bytes(h)); err != nil {
		// the cursor already moved; the bytes stay leaked until the next
		// reset, which is the arena's only reclamation path
		d.State = StateUnloaded
		return fmt.Errorf("read weights for %s: %w", d.ID, err)
	}

	d.handle = h
	d.State = StateResident
	d.LastUsed = time.Now()
	s.touch(d.ID)
	s.loads.Add(1)

	dur := time.Since(start)
	s.sink.Load()
	s.sink.LayerLoad(d.ID, dur)
	s.sink.ArenaUsage(s.arena.Used(), s.arena.Capacity())
	s.log.Debug().Str("layer", d.ID).Int64("bytes", d.ByteSize).
		Dur("load", dur).Int64("used", s.arena.Used()).Msg("layer resident")
	return nil
}

// layerOf projects a descriptor back into its manifest form.
func layerOf(d *LayerDescriptor) types.Layer {
	return types.Layer{ID: d.ID, ByteSize: d.ByteSize}
}
