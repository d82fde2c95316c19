package config

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound indicates the repo config file doesn't exist.
var ErrConfigNotFound = errors.New("config not found")

// RepoConfigPath is where a repository keeps its overrides.
const RepoConfigPath = ".codecritic.yaml"

// RepoConfig represents repository-level configuration.
type RepoConfig struct {
	Analysis RepoAnalysisConfig `yaml:"analysis"`
}

// RepoAnalysisConfig holds the analysis settings a repository may override.
type RepoAnalysisConfig struct {
	FileSuffix string `yaml:"file_suffix"`
}

// FileReader reads files from a repository.
type FileReader interface {
	ReadFile(ctx context.Context, repository, path, ref string) ([]byte, error)
}

// LoadRepoConfig loads the repo config from .codecritic.yaml.
func LoadRepoConfig(ctx context.Context, reader FileReader, repository, ref string) (*RepoConfig, error) {
	data, err := reader.ReadFile(ctx, repository, RepoConfigPath, ref)
	if errors.Is(err, ErrConfigNotFound) {
		return &RepoConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading repo config: %w", err)
	}

	var cfg RepoConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing repo config: %w", err)
	}

	return &cfg, nil
}
