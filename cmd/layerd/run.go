package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"layerd/internal/arena"
	"layerd/internal/quota"
	"layerd/internal/scheduler"
	"layerd/internal/telemetry"
	"layerd/internal/weights"
)

// buildRunCmd is a local demo harness: it commits an arena, streams a set of
// synthetic layers through it one at a time and prints the run report.
func buildRunCmd() *cobra.Command {
	var (
		capacityMB int
		layerCount int
		layerMB    int
		keep       int
		policy     string
		inputSize  int
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one inference over synthetic layers and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(logLevel)

			pol, err := quota.ParsePolicy(policy)
			if err != nil {
				return err
			}
			a, err := arena.New(int64(capacityMB) << 20)
			if err != nil {
				return err
			}
			sink := telemetry.NewMemory()
			sched, err := scheduler.New(scheduler.Config{
				Arena:        a,
				Source:       weights.NewSynthetic(layerCount, int64(layerMB)<<20),
				Sink:         sink,
				Logger:       log,
				KeepResident: keep,
				Policy:       pol,
			})
			if err != nil {
				return err
			}

			input := make([]float64, inputSize)
			for i := range input {
				input[i] = float64(i%7) * 0.5
			}

			start := time.Now()
			rep, err := sched.Run(context.Background(), input)
			if err != nil {
				return err
			}
			u := a.Snapshot()
			log.Info().
				Str("exit", string(rep.ExitLevel)).
				Int("layers_completed", rep.LayersCompleted).
				Int64("peak_bytes", u.Peak).
				Int64("capacity_bytes", u.Capacity).
				Uint64("quota_exceeded", sched.QuotaExceededCount()).
				Dur("elapsed", time.Since(start)).
				Msg("run finished")

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&capacityMB, "arena-capacity-mb", 50, "Arena capacity in MB")
	cmd.Flags().IntVar(&layerCount, "layers", 10, "Number of synthetic layers")
	cmd.Flags().IntVar(&layerMB, "layer-mb", 6, "Size of each synthetic layer in MB")
	cmd.Flags().IntVar(&keep, "keep-resident", 1, "Residency window: layers kept loaded at once")
	cmd.Flags().StringVar(&policy, "on-quota-exceeded", "early_exit", "Quota policy: early_exit|reject_request")
	cmd.Flags().IntVar(&inputSize, "input-size", 16, "Length of the generated input vector")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	return cmd
}
