package scheduler

// evictAllLocked returns every resident layer to unloaded and resets the
// arena. With whole-region reclamation this is the only eviction shape:
// there is no partial free, so the victim set is always the full window.
// The arena is reset whenever its cursor is non-zero, even with an empty
// window: a failed load leaves its allocation behind with no resident
// owner, and skipping the reset would strand those bytes until an
// unrelated eviction. Callers hold s.mu.
func (s *Scheduler) evictAllLocked() {
	if len(s.window) == 0 && s.arena.Used() == 0 {
		return
	}
	for _, id := range s.window {
		d := s.layers[id]
		d.State = StateEvicting
	}
	s.arena.Reset()
	for _, id := range s.window {
		s.layers[id].State = StateUnloaded
	}
	s.log.Debug().Strs("evicted", s.window).Msg("resident layers evicted")
	s.window = s.window[:0]
	s.evictions.Add(1)
	s.sink.Eviction()
	s.sink.ArenaUsage(0, s.arena.Capacity())
}
