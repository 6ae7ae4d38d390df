// Package config holds all thinktank configuration, loaded from YAML with
// environment variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all thinktank configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM completion gateway
	LLM LLMConfig `yaml:"llm"`

	// Swarm orchestration
	Swarm SwarmConfig `yaml:"swarm"`

	// Persona definitions
	Personas PersonasConfig `yaml:"personas"`

	// Extension system
	Extensions ExtensionsConfig `yaml:"extensions"`

	// Output artifacts
	Output OutputConfig `yaml:"output"`
}

// LLMConfig configures the completion gateway.
type LLMConfig struct {
	Provider string `yaml:"provider"` // anthropic, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`

	// Token limits differ between regular agents and the foreperson:
	// synthesis reports run longer than individual opinions.
	AgentMaxTokens      int     `yaml:"agent_max_tokens"`
	ForepersonMaxTokens int     `yaml:"foreperson_max_tokens"`
	Temperature         float64 `yaml:"temperature"`
}

// SwarmConfig configures the deliberation fan-out.
type SwarmConfig struct {
	// Composition is the required persona count per camp (foreperson
	// excluded; exactly one foreperson is always required).
	Composition CompositionConfig `yaml:"composition"`

	// MaxWorkers bounds the concurrency pool. Clamped up to the task count
	// so the default composition always runs fully parallel.
	MaxWorkers int `yaml:"max_workers"`

	// Phases is the number of deliberation rounds before synthesis.
	Phases int `yaml:"phases"`

	// TaskTimeout bounds each persona's completion call.
	TaskTimeout string `yaml:"task_timeout"`

	// RetryAttempts is the number of retries after a transient failure.
	RetryAttempts int    `yaml:"retry_attempts"`
	RetryBackoff  string `yaml:"retry_backoff"`
}

// CompositionConfig is the per-camp persona count.
type CompositionConfig struct {
	Believers int `yaml:"believers"`
	Skeptics  int `yaml:"skeptics"`
	Neutrals  int `yaml:"neutrals"`
}

// Total returns the number of deliberating agents (foreperson excluded).
func (c CompositionConfig) Total() int {
	return c.Believers + c.Skeptics + c.Neutrals
}

// PersonasConfig locates persona definition files.
type PersonasConfig struct {
	Path           string `yaml:"path"`
	ForepersonPath string `yaml:"foreperson_path"`
}

// ExtensionsConfig configures keyword-triggered domain extensions.
type ExtensionsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OutputConfig configures report artifact destinations.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "thinktank",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider: "anthropic",
			// Model and BaseURL left empty: the gateway fills per-provider
			// defaults, so switching provider via env never carries a stale
			// model name across.
			Timeout:             "120s",
			AgentMaxTokens:      2048,
			ForepersonMaxTokens: 4096,
			Temperature:         0.7,
		},

		Swarm: SwarmConfig{
			Composition: CompositionConfig{
				Believers: 2,
				Skeptics:  2,
				Neutrals:  1,
			},
			MaxWorkers:    8,
			Phases:        1,
			TaskTimeout:   "150s",
			RetryAttempts: 2,
			RetryBackoff:  "2s",
		},

		Personas: PersonasConfig{
			Path:           "personas/personas.yaml",
			ForepersonPath: "personas/foreperson.yaml",
		},

		Extensions: ExtensionsConfig{
			Enabled: true,
			Path:    "extensions",
		},

		Output: OutputConfig{
			Dir: "out",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "anthropic"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if model := os.Getenv("THINKTANK_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if dir := os.Getenv("THINKTANK_OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetTaskTimeout returns the per-task timeout as a duration.
func (c *Config) GetTaskTimeout() time.Duration {
	d, err := time.ParseDuration(c.Swarm.TaskTimeout)
	if err != nil {
		return 150 * time.Second
	}
	return d
}

// GetRetryBackoff returns the retry backoff as a duration.
func (c *Config) GetRetryBackoff() time.Duration {
	d, err := time.ParseDuration(c.Swarm.RetryBackoff)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"anthropic", "gemini"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set ANTHROPIC_API_KEY or GEMINI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Swarm.Composition.Total() == 0 {
		return fmt.Errorf("swarm composition has no agents")
	}
	if c.Swarm.Phases < 1 {
		return fmt.Errorf("swarm phases must be at least 1, got %d", c.Swarm.Phases)
	}
	if c.Swarm.RetryAttempts < 0 {
		return fmt.Errorf("swarm retry_attempts cannot be negative, got %d", c.Swarm.RetryAttempts)
	}

	return nil
}
