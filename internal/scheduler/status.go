package scheduler

import (
	"time"

	"layerd/pkg/types"
)

// Status builds a detailed status response for /status.
func (s *Scheduler) Status() types.StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.arena.Snapshot()
	resp := types.StatusResponse{
		ArenaUsedBytes:     snap.Used,
		ArenaCapacityBytes: snap.Capacity,
		ArenaPeakBytes:     snap.Peak,
		KeepResidentLayers: s.keepResident,
		QuotaPolicy:        string(s.policy),
		ResidentLayers:     s.residentIDs(),
		QuotaExceededTotal: s.quotaExceeded.Load(),
		EvictionsTotal:     s.evictions.Load(),
		LoadsTotal:         s.loads.Load(),
		UptimeSeconds:      int64(time.Since(s.startTime).Seconds()),
		ServerTimeUnix:     time.Now().Unix(),
	}
	resp.Layers = make([]types.LayerStatus, 0, len(s.order))
	for _, id := range s.order {
		d := s.layers[id]
		ls := types.LayerStatus{
			ID:       d.ID,
			ByteSize: d.ByteSize,
			State:    string(d.State),
		}
		if !d.LastUsed.IsZero() {
			ls.LastUsed = d.LastUsed.Unix()
		}
		resp.Layers = append(resp.Layers, ls)
	}
	return resp
}
