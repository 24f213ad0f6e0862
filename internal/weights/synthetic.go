package weights

import (
	"fmt"
	"io"

	"layerd/pkg/types"
)

// Synthetic is an in-memory Source generating deterministic payloads. It
// backs the demo harness and tests, where only sizes and byte counts matter.
type Synthetic struct {
	layers []types.Layer
}

// NewSynthetic builds a manifest of count layers of size bytes each, named
// layer_01..layer_NN.
func NewSynthetic(count int, size int64) *Synthetic {
	s := &Synthetic{}
	for i := 1; i <= count; i++ {
		s.layers = append(s.layers, types.Layer{ID: fmt.Sprintf("layer_%02d", i), ByteSize: size})
	}
	return s
}

// NewSyntheticSizes builds a manifest with one layer per given size, in
// order. Useful for workloads that mix layer sizes.
func NewSyntheticSizes(sizes ...int64) *Synthetic {
	s := &Synthetic{}
	for i, n := range sizes {
		s.layers = append(s.layers, types.Layer{ID: fmt.Sprintf("layer_%02d", i+1), ByteSize: n})
	}
	return s
}

func (s *Synthetic) Layers() []types.Layer {
	out := make([]types.Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

func (s *Synthetic) Open(id string) (io.ReadCloser, error) {
	for _, l := range s.layers {
		if l.ID == id {
			return io.NopCloser(&patternReader{seed: seedFor(id), remaining: l.ByteSize}), nil
		}
	}
	return nil, fmt.Errorf("weights: no shard for layer %q", id)
}

func seedFor(id string) byte {
	var h byte
	for i := 0; i < len(id); i++ {
		h = h*31 + id[i]
	}
	return h
}

// patternReader yields a deterministic byte pattern of a fixed length.
type patternReader struct {
	seed      byte
	pos       int64
	remaining int64
}

func (r *patternReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	n := int64(len(p))
	if n > r.remaining {
		n = r.remaining
	}
	for i := int64(0); i < n; i++ {
		p[i] = r.seed + byte(r.pos+i)
	}
	r.pos += n
	r.remaining -= n
	return int(n), nil
}
