package config

// RunConfig is the analysis configuration for one run after repo overrides.
type RunConfig struct {
	FileSuffix string
}

// MergeConfigs merges server config with repo config.
// Repo config values take precedence over server defaults.
func MergeConfigs(server *Config, repo *RepoConfig) *RunConfig {
	if repo == nil {
		repo = &RepoConfig{}
	}
	return &RunConfig{
		FileSuffix: coalesce(repo.Analysis.FileSuffix, server.Analysis.FileSuffix),
	}
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
