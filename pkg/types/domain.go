package types

// Layer describes one loadable weight block of the model.
type Layer struct {
	// Stable identifier for the layer.
	// example: layer_03
	ID string `json:"id" example:"layer_03"`
	// Size of the layer's weights in bytes, known before loading.
	// example: 6291456
	ByteSize int64 `json:"byte_size" example:"6291456"`
}

// ExitLevel is the outcome indicator attached to every finished run.
type ExitLevel string

const (
	// ExitCompleted: every layer ran and the full output is present.
	ExitCompleted ExitLevel = "completed"
	// ExitEarly: remaining layers were abandoned; the output is the partial
	// result accumulated so far.
	ExitEarly ExitLevel = "early_exit"
	// ExitRejected: the request produced no result.
	ExitRejected ExitLevel = "rejected"
)
