package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"layerd/pkg/types"
)

var (
	arenaUsageBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "layerd",
		Subsystem: "arena",
		Name:      "usage_bytes",
		Help:      "Bytes currently allocated in the model arena",
	})

	arenaCapacityBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "layerd",
		Subsystem: "arena",
		Name:      "capacity_bytes",
		Help:      "Fixed capacity of the model arena in bytes",
	})

	layerLoadSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "layerd",
		Subsystem: "scheduler",
		Name:      "layer_load_seconds",
		Help:      "Duration of individual layer loads into the arena",
		Buckets:   prometheus.DefBuckets,
	}, []string{"layer"})

	inferenceSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "layerd",
		Subsystem: "scheduler",
		Name:      "inference_seconds",
		Help:      "Duration of full forward passes",
		Buckets:   prometheus.DefBuckets,
	})

	quotaExceededTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "layerd",
		Subsystem: "scheduler",
		Name:      "quota_exceeded_total",
		Help:      "Quota escalations by policy branch",
	}, []string{"branch"})

	evictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "layerd",
		Subsystem: "scheduler",
		Name:      "evictions_total",
		Help:      "Evictions of the resident layer set",
	})

	loadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "layerd",
		Subsystem: "scheduler",
		Name:      "loads_total",
		Help:      "Completed layer loads",
	})

	exitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "layerd",
		Subsystem: "scheduler",
		Name:      "exit_total",
		Help:      "Finished runs by exit level",
	}, []string{"level"})
)

func init() {
	prometheus.MustRegister(
		arenaUsageBytes, arenaCapacityBytes,
		layerLoadSeconds, inferenceSeconds,
		quotaExceededTotal, evictionsTotal, loadsTotal, exitTotal,
	)
}

// Prom exposes the core's observations through the process-wide prometheus
// registry, scraped at /metrics.
type Prom struct{}

func NewProm() Prom { return Prom{} }

func (Prom) ArenaUsage(used, capacity int64) {
	arenaUsageBytes.Set(float64(used))
	arenaCapacityBytes.Set(float64(capacity))
}

func (Prom) LayerLoad(id string, d time.Duration) {
	layerLoadSeconds.WithLabelValues(id).Observe(d.Seconds())
}

func (Prom) InferenceLatency(d time.Duration) {
	inferenceSeconds.Observe(d.Seconds())
}

func (Prom) QuotaExceeded(branch string) {
	if branch == "" {
		branch = "unspecified"
	}
	quotaExceededTotal.WithLabelValues(branch).Inc()
}

func (Prom) Eviction() { evictionsTotal.Inc() }
func (Prom) Load()     { loadsTotal.Inc() }

func (Prom) Exit(level types.ExitLevel) {
	exitTotal.WithLabelValues(string(level)).Inc()
}
