package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Providers ProvidersConfig `yaml:"providers"`
	Events    EventsConfig    `yaml:"events"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Review    ReviewConfig    `yaml:"review"`
	Lint      LintConfig      `yaml:"lint"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // json or console
	Dir           string `yaml:"dir"`    // per-run log files; empty disables them
	RetentionDays int    `yaml:"retention_days"`
}

// ProvidersConfig holds git provider configurations.
type ProvidersConfig struct {
	GitHub GitHubConfig `yaml:"github"`
	GitLab GitLabConfig `yaml:"gitlab"`

	// RequestTimeoutSeconds bounds each fetch, file read and publish call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// DefaultRequestTimeout applies when request_timeout_seconds is unset.
const DefaultRequestTimeout = 30 * time.Second

// RequestTimeout returns the bound for one source-host call.
func (p ProvidersConfig) RequestTimeout() time.Duration {
	if p.RequestTimeoutSeconds <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(p.RequestTimeoutSeconds) * time.Second
}

// GitHubConfig holds GitHub-specific settings.
type GitHubConfig struct {
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
}

// GitLabConfig holds GitLab-specific settings.
type GitLabConfig struct {
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
}

// EventsConfig lists the change-request actions that trigger a review.
// Any other action is acknowledged and ignored.
type EventsConfig struct {
	PullRequestActions  []string `yaml:"pull_request_actions"`
	MergeRequestActions []string `yaml:"merge_request_actions"`
}

// AnalysisConfig bounds a single orchestration run.
type AnalysisConfig struct {
	FileSuffix        string `yaml:"file_suffix"`
	MaxInFlight       int    `yaml:"max_in_flight"`
	RunTimeoutSeconds int    `yaml:"run_timeout_seconds"`
}

// RunTimeout returns the per-run deadline.
func (a AnalysisConfig) RunTimeout() time.Duration {
	return time.Duration(a.RunTimeoutSeconds) * time.Second
}

// DispatchConfig sizes the background worker pool fed by the webhook endpoints.
type DispatchConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// ReviewConfig configures the generative reviewer backend.
type ReviewConfig struct {
	Backend           string      `yaml:"backend"` // anthropic or openai
	Model             string      `yaml:"model"`
	APIKey            string      `yaml:"api_key"`
	BaseURL           string      `yaml:"base_url"`
	MaxTokens         int         `yaml:"max_tokens"`
	RequestsPerSecond float64     `yaml:"requests_per_second"`
	Burst             int         `yaml:"burst"`
	MaxRetries        int         `yaml:"max_retries"`
	Cache             CacheConfig `yaml:"cache"`
}

// CacheConfig configures the optional Redis feedback cache.
type CacheConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// LintConfig configures the static analyzers.
type LintConfig struct {
	MaxLineLength int          `yaml:"max_line_length"`
	Docker        DockerConfig `yaml:"docker"`
}

// DockerConfig configures the containerized linter.
type DockerConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Image          string   `yaml:"image"`
	Command        []string `yaml:"command"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   7000,
			ShutdownTimeoutSeconds: 30,
		},
		Providers: ProvidersConfig{
			RequestTimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "json",
			RetentionDays: 30,
		},
		Events: EventsConfig{
			PullRequestActions:  []string{"opened", "synchronize", "reopened"},
			MergeRequestActions: []string{"open", "update", "reopen"},
		},
		Analysis: AnalysisConfig{
			FileSuffix:        ".java",
			MaxInFlight:       8,
			RunTimeoutSeconds: 300,
		},
		Dispatch: DispatchConfig{
			Workers:   4,
			QueueSize: 64,
		},
		Review: ReviewConfig{
			Backend:           "anthropic",
			Model:             "claude-sonnet-4-20250514",
			MaxTokens:         2048,
			RequestsPerSecond: 2,
			Burst:             4,
			MaxRetries:        2,
			Cache: CacheConfig{
				TTLSeconds: 86400,
			},
		},
		Lint: LintConfig{
			MaxLineLength: 120,
			Docker: DockerConfig{
				TimeoutSeconds: 60,
			},
		},
	}
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Substitute environment variables
	data = envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})

	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports configuration values that would make a run unbounded.
func (c *Config) Validate() error {
	var errs []error
	if c.Analysis.MaxInFlight < 1 {
		errs = append(errs, fmt.Errorf("analysis.max_in_flight must be positive, got %d", c.Analysis.MaxInFlight))
	}
	if c.Analysis.RunTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("analysis.run_timeout_seconds must be positive, got %d", c.Analysis.RunTimeoutSeconds))
	}
	if c.Providers.RequestTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("providers.request_timeout_seconds must not be negative, got %d", c.Providers.RequestTimeoutSeconds))
	}
	if c.Dispatch.Workers < 1 {
		errs = append(errs, fmt.Errorf("dispatch.workers must be positive, got %d", c.Dispatch.Workers))
	}
	if c.Dispatch.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("dispatch.queue_size must be positive, got %d", c.Dispatch.QueueSize))
	}
	switch c.Review.Backend {
	case "anthropic", "openai":
	default:
		errs = append(errs, fmt.Errorf("review.backend must be anthropic or openai, got %q", c.Review.Backend))
	}
	if c.Lint.Docker.Enabled && c.Lint.Docker.Image == "" {
		errs = append(errs, errors.New("lint.docker.image is required when the docker linter is enabled"))
	}
	return errors.Join(errs...)
}
