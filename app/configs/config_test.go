package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewManagerWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.json")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Agent.Name != "Surooh" {
		t.Fatalf("unexpected default agent name: %s", cfg.Agent.Name)
	}
	if cfg.Gate.Limit != 100 || cfg.Gate.WindowSec != 3600 {
		t.Fatalf("unexpected default gate config: %+v", cfg.Gate)
	}
	if cfg.Memory.ChunkSizeWords != 512 {
		t.Fatalf("unexpected default chunk size: %d", cfg.Memory.ChunkSizeWords)
	}
	if len(cfg.Orchestrator.Agents) != 3 {
		t.Fatalf("expected 3 default worker agents, got %d", len(cfg.Orchestrator.Agents))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not persisted: %v", err)
	}
	var onDisk Config
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("persisted config not valid json: %v", err)
	}
	if onDisk.Reasoner.Model != "gpt-4o" {
		t.Fatalf("unexpected persisted reasoner model: %s", onDisk.Reasoner.Model)
	}
}

func TestManagerLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw := `{"agent":{"name":"Custom"},"gate":{"limit":5,"window_sec":60}}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Agent.Name != "Custom" {
		t.Fatalf("expected custom agent name, got %s", cfg.Agent.Name)
	}
	if cfg.Gate.Limit != 5 || cfg.Gate.WindowSec != 60 {
		t.Fatalf("expected custom gate config, got %+v", cfg.Gate)
	}
	// unset sections fall back to defaults
	if cfg.Memory.ContextLimit != 50 {
		t.Fatalf("expected default context limit, got %d", cfg.Memory.ContextLimit)
	}
	if cfg.Orchestrator.DispatchTimeoutSec != 30 {
		t.Fatalf("expected default dispatch timeout, got %d", cfg.Orchestrator.DispatchTimeoutSec)
	}
}

func TestManagerUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}

	updated, err := mgr.Update(func(c *Config) {
		c.Agent.Name = "Renamed"
		c.Gate.Limit = -1 // invalid, defaults back
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Agent.Name != "Renamed" {
		t.Fatalf("expected renamed agent, got %s", updated.Agent.Name)
	}
	if updated.Gate.Limit != 100 {
		t.Fatalf("expected invalid limit reset to default, got %d", updated.Gate.Limit)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Get().Agent.Name != "Renamed" {
		t.Fatalf("update not persisted, got %s", reloaded.Get().Agent.Name)
	}
}

func TestInvalidJSONRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	if _, err := NewManager(path); err == nil {
		t.Fatal("expected error for invalid config file")
	}
}
