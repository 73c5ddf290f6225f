package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCheckFillsDerivedValues(t *testing.T) {
	cfg := New()
	cfg.Dir = "/srv/repo"

	if err := cfg.Check(); err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if cfg.Suite != cfg.Codename {
		t.Errorf("Suite = %q, want codename %q", cfg.Suite, cfg.Codename)
	}
	if cfg.Label != cfg.Origin {
		t.Errorf("Label = %q, want origin %q", cfg.Label, cfg.Origin)
	}
	if cfg.DefaultArch() != "amd64" {
		t.Errorf("DefaultArch = %q, want amd64", cfg.DefaultArch())
	}
	if cfg.Concurrency < 1 {
		t.Errorf("Concurrency = %d, want at least 1", cfg.Concurrency)
	}
	if cfg.PromptTimeout.Duration != time.Minute {
		t.Errorf("PromptTimeout = %v, want 1m", cfg.PromptTimeout.Duration)
	}
	if cfg.PoolDir() != filepath.Join("/srv/repo", "pool") {
		t.Errorf("PoolDir = %q", cfg.PoolDir())
	}
	if cfg.DistsDir() != filepath.Join("/srv/repo", "dists", "stable") {
		t.Errorf("DistsDir = %q", cfg.DistsDir())
	}
}

func TestCheckRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing dir", func(c *Config) { c.Dir = "" }, "dir is required"},
		{"empty codename", func(c *Config) { c.Codename = "" }, "codename"},
		{"no architectures", func(c *Config) { c.Architectures = nil }, "architecture"},
		{"empty architecture", func(c *Config) { c.Architectures = []string{""} }, "must not be empty"},
		{"architecture all", func(c *Config) { c.Architectures = []string{"all"} }, "concrete"},
		{"duplicate architecture", func(c *Config) { c.Architectures = []string{"amd64", "amd64"} }, "duplicate"},
		{"no components", func(c *Config) { c.Components = nil }, "component"},
		{"empty component", func(c *Config) { c.Components = []string{""} }, "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.Dir = "/srv/repo"
			tt.mutate(cfg)

			err := cfg.Check()
			if err == nil {
				t.Fatal("Check should have failed")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	content := `
dir = "/srv/repo"
origin = "Example"
codename = "bookworm"
architectures = ["amd64", "arm64"]
prompt_timeout = "30s"
sign_packages = false
`
	path := filepath.Join(tmpDir, "debrepo.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg := New()
	if err := Load(path, cfg); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Check(); err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if cfg.Origin != "Example" {
		t.Errorf("Origin = %q, want Example", cfg.Origin)
	}
	if cfg.Suite != "bookworm" {
		t.Errorf("Suite = %q, want bookworm (derived from codename)", cfg.Suite)
	}
	if len(cfg.Architectures) != 2 || cfg.Architectures[1] != "arm64" {
		t.Errorf("Architectures = %v", cfg.Architectures)
	}
	if cfg.PromptTimeout.Duration != 30*time.Second {
		t.Errorf("PromptTimeout = %v, want 30s", cfg.PromptTimeout.Duration)
	}
	if cfg.SignPackages {
		t.Error("SignPackages should be disabled by the config file")
	}
	// Defaults not mentioned in the file survive
	if !cfg.Bzip2 {
		t.Error("Bzip2 default should survive loading")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "debrepo.toml")
	if err := os.WriteFile(path, []byte("dir = \"/srv/repo\"\nsing_packages = true\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg := New()
	err = Load(path, cfg)
	if err == nil {
		t.Fatal("Load should reject unknown keys")
	}
	if !strings.Contains(err.Error(), "sing_packages") {
		t.Errorf("error %q does not name the unknown key", err)
	}
}
