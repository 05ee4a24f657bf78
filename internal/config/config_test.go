package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
discovery:
  name_prefix: LabRobot
connection:
  max_attempts: 8
sim:
  port: 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Discovery.NamePrefix != "LabRobot" {
		t.Errorf("NamePrefix = %q", cfg.Discovery.NamePrefix)
	}
	// untouched values keep their defaults
	if cfg.Discovery.ServiceType != "_umebotlogics._tcp" {
		t.Errorf("ServiceType = %q", cfg.Discovery.ServiceType)
	}
	if cfg.Connection.MaxAttempts != 8 {
		t.Errorf("MaxAttempts = %d", cfg.Connection.MaxAttempts)
	}
	if cfg.Connection.Path != "/ws_bidirectional" {
		t.Errorf("Path = %q", cfg.Connection.Path)
	}
	if cfg.Sim.Port != 9090 {
		t.Errorf("Sim.Port = %d", cfg.Sim.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load accepted a missing file")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Sim.Port != 8080 {
		t.Errorf("Sim.Port = %d, want default 8080", cfg.Sim.Port)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "discovery: [not, a, map")
	if _, err := Load(path); err == nil {
		t.Error("Load accepted invalid yaml")
	}
}

func TestConnectConversion(t *testing.T) {
	cfg := Default()
	cc := cfg.Connect()

	if cc.ServiceType != "_umebotlogics._tcp" || cc.NamePrefix != "UmebotLogics" {
		t.Errorf("discovery settings = %q %q", cc.ServiceType, cc.NamePrefix)
	}
	if cc.Backoff.Initial != 2*time.Second {
		t.Errorf("Initial = %v", cc.Backoff.Initial)
	}
	if cc.Backoff.Max != 15*time.Second {
		t.Errorf("Max = %v", cc.Backoff.Max)
	}
	if cc.Backoff.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d", cc.Backoff.MaxAttempts)
	}
	if cc.DiscoveryRetry != 3*time.Second {
		t.Errorf("DiscoveryRetry = %v", cc.DiscoveryRetry)
	}
}
