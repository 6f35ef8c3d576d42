package cli

import (
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WorkDir != "." {
		t.Fatalf("expected default work dir, got %q", cfg.WorkDir)
	}
}

func TestSaveThenLoadConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.json")

	cfg := &Config{Verbose: true, Debug: false, WorkDir: "/tmp/sweep"}
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Verbose != cfg.Verbose || loaded.WorkDir != cfg.WorkDir {
		t.Fatalf("expected round-tripped config to match, got %+v", loaded)
	}
}

func TestGetVersionInfoPopulatesRuntimeFields(t *testing.T) {
	info := GetVersionInfo()
	if info.GoVersion == "" || info.Platform == "" || info.Arch == "" {
		t.Fatal("expected runtime fields to be populated")
	}
}
