// Package compute runs the numerical forward pass for a single layer. The
// scheduler treats it as an opaque collaborator: it hands over the
// arena-resident weight bytes and the activation vector, nothing else.
package compute

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"layerd/pkg/types"
)

// Runner executes one layer over its arena-resident weights.
type Runner interface {
	Run(ctx context.Context, layer types.Layer, weights []byte, input []float64) ([]float64, error)
}

// FeedForward interprets a layer's weights as a dense float32 matrix plus a
// bias row and computes relu(W*x + b). The output width is derived from the
// weight block: a layer of N float32 values acting on an input of width in
// yields out = N / (in + 1) rows (in weights per row plus one bias).
type FeedForward struct{}

func (FeedForward) Run(ctx context.Context, layer types.Layer, weights []byte, input []float64) ([]float64, error) {
	in := len(input)
	if in == 0 {
		return nil, fmt.Errorf("compute: empty input for layer %s", layer.ID)
	}
	floats := len(weights) / 4
	out := floats / (in + 1)
	if out == 0 {
		return nil, fmt.Errorf("compute: layer %s too small (%d bytes) for input width %d", layer.ID, len(weights), in)
	}
	result := make([]float64, out)
	for row := 0; row < out; row++ {
		if row%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		base := row * (in + 1) * 4
		var acc float64
		for col := 0; col < in; col++ {
			w := float32FromBytes(weights[base+col*4:])
			acc += float64(w) * input[col]
		}
		acc += float64(float32FromBytes(weights[base+in*4:])) // bias
		if acc < 0 || math.IsNaN(acc) {
			acc = 0 // relu; NaN from denormal weight bytes collapses to 0 as well
		} else if math.IsInf(acc, 1) {
			acc = math.MaxFloat64
		}
		result[row] = acc
	}
	return result, nil
}

func float32FromBytes(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// Touch reads every weight byte once and passes the activations through
// unchanged. Used by the demo harness, where the point is watching the
// memory ceiling hold, not the arithmetic.
type Touch struct{}

func (Touch) Run(ctx context.Context, layer types.Layer, weights []byte, input []float64) ([]float64, error) {
	var sum byte
	for i := 0; i < len(weights); i++ {
		if i%(1<<20) == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		sum += weights[i]
	}
	_ = sum
	return input, nil
}
