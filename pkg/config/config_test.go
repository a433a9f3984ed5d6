package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// pointConfigAt redirects the user config dir to a temp directory.
func pointConfigAt(t *testing.T, contents string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(EnvIndex, "")
	t.Setenv(EnvNoConfig, "")
	if contents != "" {
		if err := os.MkdirAll(filepath.Join(dir, "kpar"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "kpar", FileName), []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	pointConfigAt(t, "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Indexes, DefaultIndexes) {
		t.Errorf("Indexes = %v, want defaults", cfg.Indexes)
	}
	if cfg.Environment != ".kpar_env" {
		t.Errorf("Environment = %q", cfg.Environment)
	}
}

func TestLoadFile(t *testing.T) {
	pointConfigAt(t, `
indexes = ["https://a.example", "https://b.example"]
environment = "/var/lib/kpar/env"
`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.Indexes, want) {
		t.Errorf("Indexes = %v, want %v", cfg.Indexes, want)
	}
	if cfg.Environment != "/var/lib/kpar/env" {
		t.Errorf("Environment = %q", cfg.Environment)
	}
}

func TestEnvIndexPrepends(t *testing.T) {
	pointConfigAt(t, `indexes = ["https://file.example"]`)
	t.Setenv(EnvIndex, "https://first.example, https://second.example")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"https://first.example", "https://second.example", "https://file.example"}
	if !reflect.DeepEqual(cfg.Indexes, want) {
		t.Errorf("Indexes = %v, want %v", cfg.Indexes, want)
	}
}

func TestNoConfigSkipsFile(t *testing.T) {
	pointConfigAt(t, `indexes = ["https://file.example"]`)
	t.Setenv(EnvNoConfig, "1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Indexes, DefaultIndexes) {
		t.Errorf("Indexes = %v, want defaults", cfg.Indexes)
	}
}

func TestMalformedFile(t *testing.T) {
	pointConfigAt(t, `indexes = "not a list`)
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded on malformed config")
	}
}
