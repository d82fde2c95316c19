package config

import "testing"

func TestMergeConfigs(t *testing.T) {
	server := &Config{
		Analysis: AnalysisConfig{FileSuffix: ".java"},
	}

	repo := &RepoConfig{
		Analysis: RepoAnalysisConfig{FileSuffix: ".kt"},
	}

	merged := MergeConfigs(server, repo)

	if merged.FileSuffix != ".kt" {
		t.Errorf("FileSuffix = %q, want repo override", merged.FileSuffix)
	}
}

func TestMergeConfigs_EmptyRepo(t *testing.T) {
	server := &Config{
		Analysis: AnalysisConfig{FileSuffix: ".java"},
	}

	for _, repo := range []*RepoConfig{{}, nil} {
		merged := MergeConfigs(server, repo)
		if merged.FileSuffix != ".java" {
			t.Errorf("FileSuffix = %q, want server default", merged.FileSuffix)
		}
	}
}
