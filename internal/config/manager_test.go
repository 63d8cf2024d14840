package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.json"))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "simulation" {
		t.Fatalf("mode = %q, want simulation default", cfg.Mode)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.json"))
	cfg := DefaultConfig()
	cfg.Mode = "live"
	cfg.EnabledProviders["openai"] = true
	cfg.Budget.PerCallUsd = 1.25

	if err := m.Save(&cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Mode != "live" || !got.EnabledProviders["openai"] || got.Budget.PerCallUsd != 1.25 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
