package scheduler

import (
	"context"
	"testing"

	"layerd/internal/quota"
	"layerd/internal/telemetry"
	"layerd/pkg/types"
)

// 50 MB capacity, ten 6 MB layers, window 1: the full pass completes with
// zero quota escalations and peak usage bounded by one layer, not the sum.
func TestRunStreamsLayersWithinBudget(t *testing.T) {
	sizes := make([]int64, 10)
	for i := range sizes {
		sizes[i] = 6 * mb
	}
	s, sink := newTestScheduler(t, 50*mb, 1, "", sizes...)

	rep, err := s.Run(context.Background(), []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.ExitLevel != types.ExitCompleted {
		t.Fatalf("exit_level=%s want completed", rep.ExitLevel)
	}
	if rep.LayersCompleted != 10 {
		t.Fatalf("layers_completed=%d want 10", rep.LayersCompleted)
	}
	if rep.Output == nil {
		t.Fatalf("completed run must carry output")
	}
	if got := s.QuotaExceededCount(); got != 0 {
		t.Fatalf("quota escalations=%d want 0", got)
	}
	if peak := s.Usage().Peak; peak > 6*mb {
		t.Fatalf("peak=%d exceeds single-layer bound %d", peak, 6*mb)
	}
	// window rotation before each of layers 2..10
	if sink.Count("evictions_total", "") != 9 {
		t.Fatalf("evictions=%d want 9", sink.Count("evictions_total", ""))
	}
	if sink.Count("exit_total", "completed") != 1 {
		t.Fatalf("expected one completed exit observation")
	}
	// every usage observation respects the ceiling
	for _, o := range sink.Observations() {
		if o.Name == "arena_usage_bytes" && o.Value > float64(50*mb) {
			t.Fatalf("observed usage %v beyond capacity", o.Value)
		}
	}
}

// A fatal-size layer mid-sequence under early_exit yields the partial
// result plus the early-exit indicator; the identical workload under
// reject_request yields no result and the rejection indicator.
func TestRunPolicyDivergence(t *testing.T) {
	workload := []int64{6 * mb, 25 * mb, 6 * mb}

	early, earlySink := newTestScheduler(t, 20*mb, 1, quota.PolicyEarlyExit, workload...)
	rep, err := early.Run(context.Background(), []float64{1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.ExitLevel != types.ExitEarly {
		t.Fatalf("exit_level=%s want early_exit", rep.ExitLevel)
	}
	if rep.Output == nil || rep.LayersCompleted != 1 {
		t.Fatalf("early exit must carry the partial result: %+v", rep)
	}
	if rep.LayerFailed != "layer_02" || rep.Reason == "" {
		t.Fatalf("missing failure detail: %+v", rep)
	}
	if earlySink.Count("quota_exceeded_total", telemetry.BranchEarlyExit) != 1 {
		t.Fatalf("expected one early_exit escalation observation")
	}

	reject, rejectSink := newTestScheduler(t, 20*mb, 1, quota.PolicyRejectRequest, workload...)
	rep, err = reject.Run(context.Background(), []float64{1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.ExitLevel != types.ExitRejected {
		t.Fatalf("exit_level=%s want rejected", rep.ExitLevel)
	}
	if rep.Output != nil {
		t.Fatalf("rejection must not carry output: %+v", rep)
	}
	if rep.LayerFailed != "layer_02" {
		t.Fatalf("missing failure detail: %+v", rep)
	}
	if rejectSink.Count("quota_exceeded_total", telemetry.BranchRejectRequest) != 1 {
		t.Fatalf("expected one reject_request escalation observation")
	}
}

// 10 MB capacity, one 15 MB layer: the run reports rejection without any
// abnormal termination, and nothing was ever committed to the arena.
func TestRunFatalLayerReportsRejection(t *testing.T) {
	s, _ := newTestScheduler(t, 10*mb, 1, quota.PolicyRejectRequest, 15*mb)
	rep, err := s.Run(context.Background(), []float64{1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.ExitLevel != types.ExitRejected || rep.Output != nil {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if got := s.Usage().Used; got != 0 {
		t.Fatalf("fatal run committed %d bytes", got)
	}
	if got := s.QuotaExceededCount(); got != 1 {
		t.Fatalf("escalations=%d want 1", got)
	}
}

func TestRunCancellationYieldsEarlyExit(t *testing.T) {
	s, sink := newTestScheduler(t, 50*mb, 1, "", 6*mb, 6*mb)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := s.Run(ctx, []float64{1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.ExitLevel != types.ExitEarly || rep.LayersCompleted != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if sink.Count("exit_total", "early_exit") != 1 {
		t.Fatalf("expected one early_exit observation")
	}
}

func TestRunKeepsWindowOfTwoResident(t *testing.T) {
	s, _ := newTestScheduler(t, 50*mb, 2, "", 6*mb, 6*mb, 6*mb)
	rep, err := s.Run(context.Background(), []float64{1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.ExitLevel != types.ExitCompleted {
		t.Fatalf("exit_level=%s", rep.ExitLevel)
	}
	st := s.Status()
	if len(st.ResidentLayers) == 0 || len(st.ResidentLayers) > 2 {
		t.Fatalf("window size %d violates keep_resident_layers=2", len(st.ResidentLayers))
	}
	// layers 1 and 2 shared the window; loading layer 3 rotated it
	if st.EvictionsTotal != 1 {
		t.Fatalf("evictions=%d want 1", st.EvictionsTotal)
	}
	if st.ResidentLayers[len(st.ResidentLayers)-1] != "layer_03" {
		t.Fatalf("most recent resident should be layer_03: %v", st.ResidentLayers)
	}
}

func TestRunSecondPassReusesNothingButStaysBounded(t *testing.T) {
	s, _ := newTestScheduler(t, 20*mb, 1, "", 6*mb, 6*mb)
	for i := 0; i < 3; i++ {
		rep, err := s.Run(context.Background(), []float64{1})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if rep.ExitLevel != types.ExitCompleted {
			t.Fatalf("run %d exit_level=%s", i, rep.ExitLevel)
		}
		if used := s.Usage().Used; used > 20*mb {
			t.Fatalf("run %d used=%d beyond capacity", i, used)
		}
	}
	if got := s.QuotaExceededCount(); got != 0 {
		t.Fatalf("escalations=%d want 0 across repeated passes", got)
	}
}

func TestRunEmptyInputRejected(t *testing.T) {
	s, _ := newTestScheduler(t, 10*mb, 1, "", 1*mb)
	if _, err := s.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
