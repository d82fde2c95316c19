package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "0.0.0.0"
  port: 8080

logging:
  level: debug
  dir: "/var/log/codecritic"
  retention_days: 14

analysis:
  file_suffix: ".go"
  max_in_flight: 3
  run_timeout_seconds: 45
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Logging.Dir != "/var/log/codecritic" {
		t.Errorf("Logging.Dir = %q, want %q", cfg.Logging.Dir, "/var/log/codecritic")
	}
	if cfg.Logging.RetentionDays != 14 {
		t.Errorf("Logging.RetentionDays = %d, want %d", cfg.Logging.RetentionDays, 14)
	}
	if cfg.Analysis.FileSuffix != ".go" {
		t.Errorf("Analysis.FileSuffix = %q, want %q", cfg.Analysis.FileSuffix, ".go")
	}
	if cfg.Analysis.MaxInFlight != 3 {
		t.Errorf("Analysis.MaxInFlight = %d, want %d", cfg.Analysis.MaxInFlight, 3)
	}
	if got := cfg.Analysis.RunTimeout(); got != 45*time.Second {
		t.Errorf("Analysis.RunTimeout() = %v, want %v", got, 45*time.Second)
	}
}

func TestLoadConfig_DefaultsSurviveOmittedSections(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  port: 9000\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
	if cfg.Dispatch.Workers != 4 || cfg.Dispatch.QueueSize != 64 {
		t.Errorf("Dispatch = %+v, want defaults", cfg.Dispatch)
	}
	if len(cfg.Events.PullRequestActions) != 3 {
		t.Errorf("Events.PullRequestActions = %v, want 3 defaults", cfg.Events.PullRequestActions)
	}
}

func TestLoadConfig_EnvSubstitution(t *testing.T) {
	t.Setenv("CODECRITIC_TEST_SECRET", "s3cret")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
providers:
  github:
    webhook_secret: "${CODECRITIC_TEST_SECRET}"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Providers.GitHub.WebhookSecret != "s3cret" {
		t.Errorf("GitHub.WebhookSecret = %q, want %q", cfg.Providers.GitHub.WebhookSecret, "s3cret")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() expected error for nonexistent file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "zero in-flight bound",
			mutate:  func(c *Config) { c.Analysis.MaxInFlight = 0 },
			wantErr: "max_in_flight",
		},
		{
			name:    "zero run timeout",
			mutate:  func(c *Config) { c.Analysis.RunTimeoutSeconds = 0 },
			wantErr: "run_timeout_seconds",
		},
		{
			name:    "negative provider request timeout",
			mutate:  func(c *Config) { c.Providers.RequestTimeoutSeconds = -1 },
			wantErr: "request_timeout_seconds",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Review.Backend = "bard" },
			wantErr: "review.backend",
		},
		{
			name:    "docker linter without image",
			mutate:  func(c *Config) { c.Lint.Docker.Enabled = true },
			wantErr: "lint.docker.image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestProvidersConfig_RequestTimeout(t *testing.T) {
	if got := (ProvidersConfig{}).RequestTimeout(); got != DefaultRequestTimeout {
		t.Errorf("RequestTimeout() unset = %v, want %v", got, DefaultRequestTimeout)
	}
	if got := (ProvidersConfig{RequestTimeoutSeconds: 5}).RequestTimeout(); got != 5*time.Second {
		t.Errorf("RequestTimeout() = %v, want 5s", got)
	}
}
