package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"layerd/internal/arena"
	"layerd/internal/config"
	"layerd/internal/httpapi"
	"layerd/internal/monitor"
	"layerd/internal/quota"
	"layerd/internal/scheduler"
	"layerd/internal/telemetry"
	"layerd/internal/weights"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "layerd",
		Short:         "Memory-bounded layer-by-layer model execution daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildServeCmd(), buildRunCmd())
	return root
}

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		weightsDir string
		capacityMB int
		keep       int
		policy     string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{
				Addr:                  ":8080",
				ArenaCapacityMB:       50,
				KeepResidentLayers:    1,
				OnMemoryQuotaExceeded: "early_exit",
				MonitorIntervalMS:     500,
				LogLevel:              "info",
			}
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				applyLoaded(&cfg, loaded)
			}
			// Flags set explicitly win over the file.
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("weights-dir") {
				cfg.WeightsDir = weightsDir
			}
			if cmd.Flags().Changed("arena-capacity-mb") {
				cfg.ArenaCapacityMB = capacityMB
			}
			if cmd.Flags().Changed("keep-resident") {
				cfg.KeepResidentLayers = keep
			}
			if cmd.Flags().Changed("on-quota-exceeded") {
				cfg.OnMemoryQuotaExceeded = policy
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml/.json/.toml)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&weightsDir, "weights-dir", "", "Directory of *.weights layer shards (empty: synthetic layers)")
	cmd.Flags().IntVar(&capacityMB, "arena-capacity-mb", 50, "Arena capacity in MB, committed at startup")
	cmd.Flags().IntVar(&keep, "keep-resident", 1, "Residency window: layers kept loaded at once")
	cmd.Flags().StringVar(&policy, "on-quota-exceeded", "early_exit", "Quota policy: early_exit|reject_request")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	return cmd
}

// applyLoaded overlays non-zero file values onto the defaults.
func applyLoaded(dst *config.Config, src config.Config) {
	if src.Addr != "" {
		dst.Addr = src.Addr
	}
	if src.WeightsDir != "" {
		dst.WeightsDir = src.WeightsDir
	}
	if src.ArenaCapacityMB != 0 {
		dst.ArenaCapacityMB = src.ArenaCapacityMB
	}
	if src.KeepResidentLayers != 0 {
		dst.KeepResidentLayers = src.KeepResidentLayers
	}
	if src.OnMemoryQuotaExceeded != "" {
		dst.OnMemoryQuotaExceeded = src.OnMemoryQuotaExceeded
	}
	if src.MonitorIntervalMS != 0 {
		dst.MonitorIntervalMS = src.MonitorIntervalMS
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func serve(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	pol, err := quota.ParsePolicy(cfg.OnMemoryQuotaExceeded)
	if err != nil {
		return err
	}

	a, err := arena.New(int64(cfg.ArenaCapacityMB) << 20)
	if err != nil {
		return fmt.Errorf("arena: %w", err)
	}
	log.Info().Int("capacity_mb", cfg.ArenaCapacityMB).Msg("arena committed")

	var src weights.Source
	if cfg.WeightsDir != "" {
		d, err := weights.LoadDir(cfg.WeightsDir)
		if err != nil {
			return fmt.Errorf("weights: %w", err)
		}
		src = d
		log.Info().Str("dir", cfg.WeightsDir).Int("layers", len(d.Layers())).Msg("weights directory scanned")
	} else {
		src = weights.NewSynthetic(10, 6<<20)
		log.Info().Msg("no weights dir configured, serving synthetic layers")
	}

	sched, err := scheduler.New(scheduler.Config{
		Arena:        a,
		Source:       src,
		Sink:         telemetry.NewProm(),
		Logger:       log,
		KeepResident: cfg.KeepResidentLayers,
		Policy:       pol,
	})
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	mon := monitor.New(time.Duration(cfg.MonitorIntervalMS)*time.Millisecond, a.Snapshot, log)
	mon.Start(context.Background())
	defer mon.Stop()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)
	httpapi.SetSampler(mon.Last)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(sched),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("policy", string(pol)).Msg("layerd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
	return nil
}
