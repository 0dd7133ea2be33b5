// Package config provides configuration loading and management for Examforge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Examforge configuration
type Config struct {
	Model       ModelConfig       `yaml:"model"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Generation  GenerationConfig  `yaml:"generation"`
	Retry       RetryConfig       `yaml:"retry"`
	Sources     SourcesConfig     `yaml:"sources"`
	Output      OutputConfig      `yaml:"output"`
}

// ModelConfig configures the generative API settings
type ModelConfig struct {
	// Provider selects the API wire format ("gemini" or "openai")
	Provider string `yaml:"provider"`
	// Name is the model to request (e.g., "gemini-2.5-flash")
	Name string `yaml:"name"`
	// Endpoint overrides the provider's default base URL (empty = default)
	Endpoint string `yaml:"endpoint"`
	// Temperature controls randomness (0.0-2.0, nil = provider default)
	Temperature *float64 `yaml:"temperature"`
	// ThinkingBudget caps reasoning tokens (nil = provider default)
	ThinkingBudget *int `yaml:"thinking_budget"`
	// MaxOutputTokens limits response length (0 = provider default)
	MaxOutputTokens int `yaml:"max_output_tokens"`
}

// CredentialsConfig configures the API key pool
type CredentialsConfig struct {
	// File is the path to the newline-delimited key file
	File string `yaml:"file"`
	// Policy selects key assignment: "round-robin" or "least-failed"
	Policy string `yaml:"policy"`
	// FailureThreshold excludes a key after this many failures
	// (least-failed policy only; round-robin excludes on the first)
	FailureThreshold int `yaml:"failure_threshold"`
	// QuotaWindow is the per-key usage accounting window
	QuotaWindow time.Duration `yaml:"quota_window"`
	// QuotaCeiling is the per-key token budget within a window (0 = unlimited)
	QuotaCeiling int `yaml:"quota_ceiling"`
}

// GenerationConfig configures what gets generated
type GenerationConfig struct {
	// Subject names the exam topic woven into the instructions
	Subject string `yaml:"subject"`
	// TargetQuestions is the completion threshold per exam
	TargetQuestions int `yaml:"target_questions"`
	// Count is how many exam variants to generate in one run
	Count int `yaml:"count"`
	// MaxContinuations bounds continuation plus parse-retry requests per exam
	MaxContinuations int `yaml:"max_continuations"`
	// Schema selects the response shape: "nested" or "flat"
	Schema string `yaml:"schema"`
	// DebugDir saves every raw model response when set
	DebugDir string `yaml:"debug_dir"`
}

// RetryConfig configures transport failure handling
type RetryConfig struct {
	// MaxTransportRetries bounds retries per exam across all credentials
	MaxTransportRetries int `yaml:"max_transport_retries"`
	// BackoffBase is the first retry delay
	BackoffBase time.Duration `yaml:"backoff_base"`
	// BackoffMultiplier grows the delay each retry
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	// MaxBackoff caps the delay
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// QuotaCooldown is the fixed pause after rotating off a quota-limited key
	QuotaCooldown time.Duration `yaml:"quota_cooldown"`
}

// SourcesConfig configures reference document discovery
type SourcesConfig struct {
	// Root is the directory to search for reference documents
	Root string `yaml:"root"`
	// Patterns are glob patterns relative to Root (** supported)
	Patterns []string `yaml:"patterns"`
}

// OutputConfig configures where and how artifacts are written
type OutputConfig struct {
	// Dir is the directory for rendered exams
	Dir string `yaml:"dir"`
	// Format selects the renderer: "html" or "markdown"
	Format string `yaml:"format"`
	// Concurrency bounds simultaneous exam generations
	Concurrency int `yaml:"concurrency"`
	// BatchPause is the rest between concurrency batches
	BatchPause time.Duration `yaml:"batch_pause"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider: "gemini",
			Name:     "gemini-2.5-flash",
		},
		Credentials: CredentialsConfig{
			File:             "keys.txt",
			Policy:           "round-robin",
			FailureThreshold: 3,
			QuotaWindow:      time.Minute,
		},
		Generation: GenerationConfig{
			Subject:          "",
			TargetQuestions:  150,
			Count:            1,
			MaxContinuations: 5,
			Schema:           "nested",
		},
		Retry: RetryConfig{
			MaxTransportRetries: 3,
			BackoffBase:         2 * time.Second,
			BackoffMultiplier:   2.0,
			MaxBackoff:          30 * time.Second,
			QuotaCooldown:       15 * time.Second,
		},
		Sources: SourcesConfig{
			Root:     "sources",
			Patterns: []string{"**/*.pdf", "**/*.html", "**/*.md", "**/*.txt", "**/*.png", "**/*.jpg"},
		},
		Output: OutputConfig{
			Dir:         "exams",
			Format:      "html",
			Concurrency: 1,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Credentials.File == "" {
		return fmt.Errorf("credentials.file is required")
	}
	switch c.Credentials.Policy {
	case "round-robin", "least-failed":
	default:
		return fmt.Errorf("credentials.policy must be round-robin or least-failed, got %q", c.Credentials.Policy)
	}
	if c.Generation.TargetQuestions < 1 {
		return fmt.Errorf("generation.target_questions must be positive")
	}
	if c.Generation.Count < 1 {
		return fmt.Errorf("generation.count must be positive")
	}
	if c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("retry.backoff_multiplier must be at least 1")
	}
	switch c.Output.Format {
	case "html", "markdown":
	default:
		return fmt.Errorf("output.format must be html or markdown, got %q", c.Output.Format)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Model
	if other.Model.Provider != "" {
		c.Model.Provider = other.Model.Provider
	}
	if other.Model.Name != "" {
		c.Model.Name = other.Model.Name
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.Temperature != nil {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.ThinkingBudget != nil {
		c.Model.ThinkingBudget = other.Model.ThinkingBudget
	}
	if other.Model.MaxOutputTokens != 0 {
		c.Model.MaxOutputTokens = other.Model.MaxOutputTokens
	}

	// Credentials
	if other.Credentials.File != "" {
		c.Credentials.File = other.Credentials.File
	}
	if other.Credentials.Policy != "" {
		c.Credentials.Policy = other.Credentials.Policy
	}
	if other.Credentials.FailureThreshold != 0 {
		c.Credentials.FailureThreshold = other.Credentials.FailureThreshold
	}
	if other.Credentials.QuotaWindow != 0 {
		c.Credentials.QuotaWindow = other.Credentials.QuotaWindow
	}
	if other.Credentials.QuotaCeiling != 0 {
		c.Credentials.QuotaCeiling = other.Credentials.QuotaCeiling
	}

	// Generation
	if other.Generation.Subject != "" {
		c.Generation.Subject = other.Generation.Subject
	}
	if other.Generation.TargetQuestions != 0 {
		c.Generation.TargetQuestions = other.Generation.TargetQuestions
	}
	if other.Generation.Count != 0 {
		c.Generation.Count = other.Generation.Count
	}
	if other.Generation.MaxContinuations != 0 {
		c.Generation.MaxContinuations = other.Generation.MaxContinuations
	}
	if other.Generation.Schema != "" {
		c.Generation.Schema = other.Generation.Schema
	}
	if other.Generation.DebugDir != "" {
		c.Generation.DebugDir = other.Generation.DebugDir
	}

	// Retry
	if other.Retry.MaxTransportRetries != 0 {
		c.Retry.MaxTransportRetries = other.Retry.MaxTransportRetries
	}
	if other.Retry.BackoffBase != 0 {
		c.Retry.BackoffBase = other.Retry.BackoffBase
	}
	if other.Retry.BackoffMultiplier != 0 {
		c.Retry.BackoffMultiplier = other.Retry.BackoffMultiplier
	}
	if other.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = other.Retry.MaxBackoff
	}
	if other.Retry.QuotaCooldown != 0 {
		c.Retry.QuotaCooldown = other.Retry.QuotaCooldown
	}

	// Sources
	if other.Sources.Root != "" {
		c.Sources.Root = other.Sources.Root
	}
	if len(other.Sources.Patterns) > 0 {
		c.Sources.Patterns = other.Sources.Patterns
	}

	// Output
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Concurrency != 0 {
		c.Output.Concurrency = other.Output.Concurrency
	}
	if other.Output.BatchPause != 0 {
		c.Output.BatchPause = other.Output.BatchPause
	}
}
