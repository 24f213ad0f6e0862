// Package weights supplies layer weight bytes on demand. The core never
// reads persistent storage directly; it sees only this collaborator.
package weights

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"layerd/pkg/types"
)

// Source is the weight-source collaborator contract: the manifest exposes
// every layer's byte size before loading, and Open streams the bytes.
type Source interface {
	// Layers returns the layer manifest in execution order.
	Layers() []types.Layer
	// Open returns a byte stream for the given layer id. The stream yields
	// exactly the manifest's ByteSize bytes.
	Open(id string) (io.ReadCloser, error)
}

// Dir is a Source backed by a directory of weight shard files, one file per
// layer. The layer id is the filename without extension; sizes come from
// the filesystem.
type Dir struct {
	layers []types.Layer
	paths  map[string]string
}

// weightExt is the shard extension LoadDir scans for.
const weightExt = ".weights"

// LoadDir scans dir for *.weights files and builds the manifest. Execution
// order is the lexical filename order, which is how shard exporters number
// layers (layer_01, layer_02, ...).
func LoadDir(dir string) (*Dir, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	d := &Dir{paths: make(map[string]string)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), weightExt) {
			continue
		}
		p := filepath.Join(abs, name)
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		d.layers = append(d.layers, types.Layer{ID: id, ByteSize: fi.Size()})
		d.paths[id] = p
	}
	sort.Slice(d.layers, func(i, j int) bool { return d.layers[i].ID < d.layers[j].ID })
	return d, nil
}

func (d *Dir) Layers() []types.Layer {
	out := make([]types.Layer, len(d.layers))
	copy(out, d.layers)
	return out
}

func (d *Dir) Open(id string) (io.ReadCloser, error) {
	p, ok := d.paths[id]
	if !ok {
		return nil, fmt.Errorf("weights: no shard for layer %q", id)
	}
	return os.Open(p)
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
