package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Provider != "gemini" {
		t.Errorf("expected default provider gemini, got %s", cfg.Model.Provider)
	}
	if cfg.Model.Name != "gemini-2.5-flash" {
		t.Errorf("expected default model gemini-2.5-flash, got %s", cfg.Model.Name)
	}
	if cfg.Generation.TargetQuestions != 150 {
		t.Errorf("expected default target 150, got %d", cfg.Generation.TargetQuestions)
	}
	if cfg.Credentials.Policy != "round-robin" {
		t.Errorf("expected default policy round-robin, got %s", cfg.Credentials.Policy)
	}
	if cfg.Retry.BackoffMultiplier != 2.0 {
		t.Errorf("expected default backoff multiplier 2.0, got %f", cfg.Retry.BackoffMultiplier)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing provider",
			modify:  func(c *Config) { c.Model.Provider = "" },
			wantErr: true,
		},
		{
			name:    "missing model name",
			modify:  func(c *Config) { c.Model.Name = "" },
			wantErr: true,
		},
		{
			name:    "missing credentials file",
			modify:  func(c *Config) { c.Credentials.File = "" },
			wantErr: true,
		},
		{
			name:    "unknown policy",
			modify:  func(c *Config) { c.Credentials.Policy = "random" },
			wantErr: true,
		},
		{
			name:    "zero target questions",
			modify:  func(c *Config) { c.Generation.TargetQuestions = 0 },
			wantErr: true,
		},
		{
			name:    "zero exam count",
			modify:  func(c *Config) { c.Generation.Count = 0 },
			wantErr: true,
		},
		{
			name:    "shrinking backoff",
			modify:  func(c *Config) { c.Retry.BackoffMultiplier = 0.5 },
			wantErr: true,
		},
		{
			name:    "unknown output format",
			modify:  func(c *Config) { c.Output.Format = "pdf" },
			wantErr: true,
		},
		{
			name:    "least-failed policy accepted",
			modify:  func(c *Config) { c.Credentials.Policy = "least-failed" },
			wantErr: false,
		},
		{
			name:    "markdown format accepted",
			modify:  func(c *Config) { c.Output.Format = "markdown" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	temp := 0.7
	other := &Config{
		Model: ModelConfig{
			Name:        "gemini-2.5-pro",
			Temperature: &temp,
		},
		Generation: GenerationConfig{
			Subject:         "Physics",
			TargetQuestions: 40,
		},
		Retry: RetryConfig{
			QuotaCooldown: 30 * time.Second,
		},
	}

	base.Merge(other)

	if base.Model.Name != "gemini-2.5-pro" {
		t.Errorf("model name not merged: %s", base.Model.Name)
	}
	if base.Model.Provider != "gemini" {
		t.Errorf("unset provider must not clobber default: %s", base.Model.Provider)
	}
	if base.Model.Temperature == nil || *base.Model.Temperature != 0.7 {
		t.Error("temperature not merged")
	}
	if base.Generation.Subject != "Physics" {
		t.Errorf("subject not merged: %s", base.Generation.Subject)
	}
	if base.Generation.TargetQuestions != 40 {
		t.Errorf("target not merged: %d", base.Generation.TargetQuestions)
	}
	if base.Generation.Count != 1 {
		t.Errorf("unset count must keep default: %d", base.Generation.Count)
	}
	if base.Retry.QuotaCooldown != 30*time.Second {
		t.Errorf("cooldown not merged: %s", base.Retry.QuotaCooldown)
	}
	if base.Retry.MaxTransportRetries != 3 {
		t.Errorf("unset retries must keep default: %d", base.Retry.MaxTransportRetries)
	}
}

func TestConfigMergeNil(t *testing.T) {
	base := DefaultConfig()
	base.Merge(nil)
	if base.Model.Provider != "gemini" {
		t.Error("merging nil must leave config untouched")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "examforge.yaml")
	data := []byte(`
model:
  provider: gemini
  name: gemini-2.5-pro
generation:
  subject: Chemistry
  target_questions: 60
credentials:
  policy: least-failed
  quota_window: 2m
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Model.Name != "gemini-2.5-pro" {
		t.Errorf("model name not loaded: %s", cfg.Model.Name)
	}
	if cfg.Generation.Subject != "Chemistry" {
		t.Errorf("subject not loaded: %s", cfg.Generation.Subject)
	}
	if cfg.Credentials.QuotaWindow != 2*time.Minute {
		t.Errorf("quota window not parsed: %s", cfg.Credentials.QuotaWindow)
	}
	if cfg.Output.Format != "html" {
		t.Errorf("defaults must fill unset fields: %s", cfg.Output.Format)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Generation.Subject = "Biology"
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Generation.Subject != "Biology" {
		t.Errorf("round trip lost subject: %s", loaded.Generation.Subject)
	}
}
