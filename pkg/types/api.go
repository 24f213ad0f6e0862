package types

// InferRequest is the payload for POST /infer.
type InferRequest struct {
	// Input activation vector fed to the first layer.
	Input []float64 `json:"input,omitempty"`
	// If Input is empty, a zero vector of this length is used instead.
	// example: 256
	InputSize int `json:"input_size,omitempty" example:"256"`
}

// RunReport is the result of one forward pass. Policy outcomes (early exit,
// rejection) are ordinary reports, not errors.
type RunReport struct {
	// Outcome indicator: completed, early_exit or rejected.
	// example: completed
	ExitLevel ExitLevel `json:"exit_level" example:"completed"`
	// Number of layers that ran to completion.
	// example: 10
	LayersCompleted int `json:"layers_completed" example:"10"`
	// Layer on which the run stopped, empty when completed.
	LayerFailed string `json:"layer_failed,omitempty"`
	// Human-readable reason for a non-completed outcome.
	Reason string `json:"reason,omitempty"`
	// Final (or partial, on early exit) activation vector. Nil on rejection.
	Output []float64 `json:"output,omitempty"`
	// Wall-clock latency of the pass in milliseconds.
	// example: 42
	LatencyMS int64 `json:"latency_ms" example:"42"`
}

// LayerStatus summarizes one layer descriptor for GET /status.
type LayerStatus struct {
	// example: layer_03
	ID string `json:"id" example:"layer_03"`
	// example: 6291456
	ByteSize int64 `json:"byte_size" example:"6291456"`
	// Residency state: unloaded, loading, resident or evicting.
	// example: resident
	State string `json:"state" example:"resident"`
	// Last time this layer was used by a run (unix seconds, 0 if never).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix,omitempty" example:"1700000000"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Bytes currently allocated in the arena.
	// example: 6291456
	ArenaUsedBytes int64 `json:"arena_used_bytes" example:"6291456"`
	// Fixed arena capacity in bytes.
	// example: 52428800
	ArenaCapacityBytes int64 `json:"arena_capacity_bytes" example:"52428800"`
	// High-water mark of arena usage across resets.
	// example: 6291456
	ArenaPeakBytes int64 `json:"arena_peak_bytes" example:"6291456"`
	// Maximum number of simultaneously resident layers.
	// example: 1
	KeepResidentLayers int `json:"keep_resident_layers" example:"1"`
	// Configured escalation policy.
	// example: early_exit
	QuotaPolicy string `json:"quota_policy" example:"early_exit"`
	// All known layers with their residency state.
	Layers []LayerStatus `json:"layers"`
	// Ids currently resident, in least-recently-used order.
	ResidentLayers []string `json:"resident_layers"`
	// Total quota escalations since start.
	// example: 1
	QuotaExceededTotal uint64 `json:"quota_exceeded_total" example:"1"`
	// Total evictions (window rotations and quota-driven resets).
	// example: 9
	EvictionsTotal uint64 `json:"evictions_total" example:"9"`
	// Total layer loads.
	// example: 10
	LoadsTotal uint64 `json:"loads_total" example:"10"`
	// OS-reported resident memory of the process, if the monitor is running.
	OSResidentBytes int64 `json:"os_resident_bytes,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// LayersResponse wraps the manifest returned by GET /layers.
type LayersResponse struct {
	Layers []Layer `json:"layers"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
