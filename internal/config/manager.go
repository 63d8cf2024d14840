// Package config loads and hot-reloads the engine's configuration: the
// router's mode and per-provider enable flags, and the Budget Guard's caps.
// Grounded on the teacher's internal/config/manager.go JSON load/save, with
// .env bootstrap (github.com/joho/godotenv) and file-watch hot-reload
// (github.com/fsnotify/fsnotify) added per SPEC_FULL's ambient-stack
// expansion.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/cortexloop/engine/internal/domain"
)

// Config is the engine's persisted configuration (spec §6.3 config.get/set).
type Config struct {
	Mode                 string              `json:"mode"` // simulation, selective, live
	EnabledProviders     map[string]bool     `json:"enabledProviders"`
	Budget               domain.BudgetConfig `json:"budget"`
	SandboxMode          string              `json:"sandboxMode"` // docker, host, auto
	DockerImage          string              `json:"dockerImage,omitempty"`
	CycleCooldownMinutes int                 `json:"cycleCooldownMinutes"`
}

// DefaultConfig returns a conservative starting configuration.
func DefaultConfig() Config {
	return Config{
		Mode:                 "simulation",
		EnabledProviders:     map[string]bool{},
		Budget:               domain.DefaultBudgetConfig(),
		SandboxMode:          "auto",
		CycleCooldownMinutes: 30,
	}
}

// Manager handles loading and saving Config to a JSON file.
type Manager struct {
	path string
}

// NewManager creates a Manager rooted at path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads Config from disk. A missing file yields DefaultConfig and no
// error, matching the teacher's manager.go behavior.
func (m *Manager) Load() (*Config, error) {
	if _, err := os.Stat(m.path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		return &cfg, nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg to disk atomically (temp file + rename) with 0600
// permissions, satisfying the Store contract's "saveX must be atomic"
// requirement (spec §6.1) for the configuration singleton.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("config: write temp: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("config: rename: %w", err)
	}
	return nil
}

// GetPath returns the absolute config file path.
func (m *Manager) GetPath() string { return m.path }

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return !os.IsNotExist(err)
}

// LoadEnv loads a .env file (if present) into the process environment. Never
// fails the caller: a missing .env is expected in most deployments.
func LoadEnv(path string) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("config: no .env loaded from %s (%v)", path, err)
	}
}
