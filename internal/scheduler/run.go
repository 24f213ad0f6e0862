package scheduler

import (
	"context"
	"fmt"
	"time"

	"layerd/internal/quota"
	"layerd/internal/telemetry"
	"layerd/pkg/types"
)

// Run drives one full forward pass over the manifest in order: for each
// layer, make it resident, run the compute collaborator over its arena
// window, and rotate the residency window before the next load.
//
// Quota outcomes never surface as errors here. A layer that cannot fit even
// an empty arena is absorbed through the configured policy: early_exit
// yields the partial result with an exit indicator, reject_request yields
// no result with a distinct indicator. Both are ordinary completions of the
// contract. Cancellation halts the loop between layers and reports an
// early exit; an in-flight load is never interrupted. The returned error is
// reserved for infrastructure failures (weight source IO, compute faults).
func (s *Scheduler) Run(ctx context.Context, input []float64) (types.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(input) == 0 {
		return types.RunReport{}, fmt.Errorf("scheduler: empty input vector")
	}
	start := time.Now()
	x := append([]float64(nil), input...)
	completed := 0

	for _, id := range s.order {
		if ctx.Err() != nil {
			return s.finishLocked(start, types.RunReport{
				ExitLevel:       types.ExitEarly,
				LayersCompleted: completed,
				LayerFailed:     id,
				Reason:          "canceled: " + ctx.Err().Error(),
				Output:          x,
			}), nil
		}
		d := s.layers[id]
		if d.State != StateResident {
			// Window rotation: make room before loading the next layer.
			// Routine residency churn, not a quota escalation.
			if len(s.window) >= s.keepResident {
				s.evictAllLocked()
			}
			if err := s.ensureResidentLocked(ctx, id); err != nil {
				switch {
				case IsFatal(err) || IsQuotaExhausted(err):
					return s.escalateLocked(start, id, completed, x, err), nil
				case ctx.Err() != nil:
					return s.finishLocked(start, types.RunReport{
						ExitLevel:       types.ExitEarly,
						LayersCompleted: completed,
						LayerFailed:     id,
						Reason:          "canceled: " + ctx.Err().Error(),
						Output:          x,
					}), nil
				default:
					return types.RunReport{}, err
				}
			}
		} else {
			d.LastUsed = time.Now()
			s.touch(id)
		}

		out, err := s.runner.Run(ctx, layerOf(d), s.arena.Bytes(d.handle), x)
		if err != nil {
			if ctx.Err() != nil {
				return s.finishLocked(start, types.RunReport{
					ExitLevel:       types.ExitEarly,
					LayersCompleted: completed,
					LayerFailed:     id,
					Reason:          "canceled: " + ctx.Err().Error(),
					Output:          x,
				}), nil
			}
			return types.RunReport{}, fmt.Errorf("run layer %s: %w", id, err)
		}
		x = out
		completed++
	}

	return s.finishLocked(start, types.RunReport{
		ExitLevel:       types.ExitCompleted,
		LayersCompleted: completed,
		Output:          x,
	}), nil
}

// escalateLocked maps an unsatisfiable request onto the configured policy.
func (s *Scheduler) escalateLocked(start time.Time, id string, completed int, partial []float64, cause error) types.RunReport {
	s.quotaExceeded.Add(1)
	rep := types.RunReport{
		LayersCompleted: completed,
		LayerFailed:     id,
		Reason:          cause.Error(),
	}
	switch s.policy {
	case quota.PolicyRejectRequest:
		rep.ExitLevel = types.ExitRejected
		s.sink.QuotaExceeded(telemetry.BranchRejectRequest)
	default:
		rep.ExitLevel = types.ExitEarly
		rep.Output = partial
		s.sink.QuotaExceeded(telemetry.BranchEarlyExit)
	}
	s.log.Warn().Str("layer", id).Str("policy", string(s.policy)).
		Str("exit_level", string(rep.ExitLevel)).Err(cause).
		Msg("quota escalation")
	return s.finishLocked(start, rep)
}

// finishLocked stamps latency and emits the outcome observations.
func (s *Scheduler) finishLocked(start time.Time, rep types.RunReport) types.RunReport {
	dur := time.Since(start)
	rep.LatencyMS = dur.Milliseconds()
	s.sink.InferenceLatency(dur)
	s.sink.Exit(rep.ExitLevel)
	s.log.Info().Str("exit_level", string(rep.ExitLevel)).
		Int("layers", rep.LayersCompleted).Dur("latency", dur).Msg("run finished")
	return rep
}
