package registry

import (
	"fmt"
	"sort"

	"github.com/drewdunne/codecritic/internal/config"
	"github.com/drewdunne/codecritic/internal/provider"
	"github.com/drewdunne/codecritic/internal/provider/github"
	"github.com/drewdunne/codecritic/internal/provider/gitlab"
)

// Registry manages provider instances.
type Registry struct {
	providers map[string]provider.Provider
}

// New creates a new provider registry from config. Providers without a token
// are left out.
func New(cfg *config.Config) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]provider.Provider),
	}

	if gh := cfg.Providers.GitHub; gh.Token != "" {
		opts := []github.Option{github.WithTimeout(cfg.Providers.RequestTimeout())}
		if gh.BaseURL != "" {
			opts = append(opts, github.WithBaseURL(gh.BaseURL))
		}
		r.providers["github"] = github.New(gh.Token, opts...)
	}

	if gl := cfg.Providers.GitLab; gl.Token != "" {
		p, err := gitlab.New(gl.Token, gl.BaseURL, gitlab.WithTimeout(cfg.Providers.RequestTimeout()))
		if err != nil {
			return nil, fmt.Errorf("configuring gitlab: %w", err)
		}
		r.providers["gitlab"] = p
	}

	return r, nil
}

// Register adds or replaces a provider.
func (r *Registry) Register(p provider.Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider for the given name, or nil if not configured.
func (r *Registry) Get(name string) provider.Provider {
	return r.providers[name]
}

// List returns all configured provider names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
