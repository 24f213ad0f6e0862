package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nweights_dir: /w\narena_capacity_mb: 50\nkeep_resident_layers: 1\non_memory_quota_exceeded: early_exit\nmonitor_interval_ms: 500\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.WeightsDir != "/w" || cfg.ArenaCapacityMB != 50 ||
		cfg.KeepResidentLayers != 1 || cfg.OnMemoryQuotaExceeded != "early_exit" || cfg.MonitorIntervalMS != 500 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","weights_dir":"/m","arena_capacity_mb":20,"keep_resident_layers":2,"on_memory_quota_exceeded":"reject_request"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.WeightsDir != "/m" || cfg.ArenaCapacityMB != 20 ||
		cfg.KeepResidentLayers != 2 || cfg.OnMemoryQuotaExceeded != "reject_request" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nweights_dir=\"/x\"\narena_capacity_mb=9\nkeep_resident_layers=1\non_memory_quota_exceeded=\"early_exit\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.WeightsDir != "/x" || cfg.ArenaCapacityMB != 9 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestValidate(t *testing.T) {
	good := Config{ArenaCapacityMB: 50, KeepResidentLayers: 1, OnMemoryQuotaExceeded: "early_exit"}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cases := []Config{
		{ArenaCapacityMB: 0, KeepResidentLayers: 1},
		{ArenaCapacityMB: -5, KeepResidentLayers: 1},
		{ArenaCapacityMB: 50, KeepResidentLayers: 0},
		{ArenaCapacityMB: 50, KeepResidentLayers: 1, OnMemoryQuotaExceeded: "explode"},
		{ArenaCapacityMB: 50, KeepResidentLayers: 1, MonitorIntervalMS: -1},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, c)
		}
	}
}
