// Package monitor is a read-only background sampler of OS-level process
// memory and CPU. It cross-validates the arena's self-reported usage
// against what the kernel actually accounts to the process, and never
// participates in allocation decisions: it communicates with the core only
// through an atomic counter snapshot, sharing no lock with the arena's
// mutation path.
package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"
	"github.com/rs/zerolog"

	"layerd/internal/arena"
)

var (
	osResidentBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "layerd",
		Subsystem: "monitor",
		Name:      "os_resident_bytes",
		Help:      "OS-reported resident memory of the process",
	})

	osCPUSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "layerd",
		Subsystem: "monitor",
		Name:      "os_cpu_seconds",
		Help:      "OS-reported cumulative CPU time of the process",
	})
)

func init() {
	prometheus.MustRegister(osResidentBytes, osCPUSeconds)
}

// userHZ is the kernel clock tick rate /proc stat times are expressed in.
const userHZ = 100

// Sample is one OS-level observation.
type Sample struct {
	ResidentBytes int64
	CPUSeconds    float64
	TakenAt       time.Time
}

// UsageFunc returns the core's counter snapshot; it must be safe to call
// from the monitor goroutine (the arena backs it with atomics).
type UsageFunc func() arena.Usage

// Monitor periodically samples /proc for the current process.
type Monitor struct {
	interval time.Duration
	usage    UsageFunc
	log      zerolog.Logger

	last atomic.Pointer[Sample]
	stop context.CancelFunc
	done chan struct{}
}

// New builds a monitor sampling every interval. usage may be nil, in which
// case no cross-validation is logged.
func New(interval time.Duration, usage UsageFunc, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Monitor{interval: interval, usage: usage, log: log}
}

// Start launches the sampling goroutine. It runs until ctx is canceled or
// Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.stop = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.loop(ctx)
}

// Stop halts the sampler and waits for the goroutine to exit.
func (m *Monitor) Stop() {
	if m.stop == nil {
		return
	}
	m.stop()
	<-m.done
}

// Last returns the most recent sample, if any was taken yet.
func (m *Monitor) Last() (Sample, bool) {
	if s := m.last.Load(); s != nil {
		return *s, true
	}
	return Sample{}, false
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	m.log.Debug().Dur("interval", m.interval).Msg("system monitor started")
	for {
		select {
		case <-ctx.Done():
			m.log.Debug().Msg("system monitor stopped")
			return
		case <-t.C:
			s, err := TakeSample()
			if err != nil {
				m.log.Warn().Err(err).Msg("process sample failed")
				continue
			}
			m.last.Store(&s)
			osResidentBytes.Set(float64(s.ResidentBytes))
			osCPUSeconds.Set(s.CPUSeconds)
			if m.usage != nil {
				u := m.usage()
				ev := m.log.Debug().
					Int64("os_resident", s.ResidentBytes).
					Int64("arena_used", u.Used).
					Int64("arena_capacity", u.Capacity)
				// The committed arena must be visible in the process RSS;
				// if the OS reports less than the declared capacity, the
				// capacity claim does not hold on this system.
				if s.ResidentBytes < u.Capacity {
					ev = m.log.Warn().
						Int64("os_resident", s.ResidentBytes).
						Int64("arena_capacity", u.Capacity)
				}
				ev.Msg("memory sample")
			}
		}
	}
}

// TakeSample reads one OS-level sample for the current process.
func TakeSample() (Sample, error) {
	p, err := procfs.Self()
	if err != nil {
		return Sample{}, err
	}
	st, err := p.Stat()
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		ResidentBytes: int64(st.ResidentMemory()),
		CPUSeconds:    float64(st.UTime+st.STime) / userHZ,
		TakenAt:       time.Now(),
	}, nil
}
