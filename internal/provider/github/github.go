package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v60/github"

	"github.com/drewdunne/codecritic/internal/provider"
)

const filesPerPage = 100

// GitHubProvider implements provider.Provider for GitHub.
type GitHubProvider struct {
	client *github.Client
}

// DefaultTimeout bounds each API request.
const DefaultTimeout = 30 * time.Second

type settings struct {
	baseURL string
	timeout time.Duration
}

// Option configures the GitHub provider.
type Option func(*settings)

// WithBaseURL sets a custom API base URL (GitHub Enterprise, tests).
func WithBaseURL(url string) Option {
	return func(s *settings) {
		s.baseURL = url
	}
}

// WithTimeout overrides DefaultTimeout. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a new GitHub provider.
func New(token string, opts ...Option) *GitHubProvider {
	s := settings{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&s)
	}

	client := github.NewClient(&http.Client{
		Transport: &tokenTransport{token: token},
		Timeout:   s.timeout,
	})
	if s.baseURL != "" {
		client.BaseURL, _ = client.BaseURL.Parse(s.baseURL + "/")
	}

	return &GitHubProvider{client: client}
}

// tokenTransport adds authorization header to requests.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

// Name returns the provider name.
func (p *GitHubProvider) Name() string {
	return "github"
}

// FetchChangeRequest fetches a pull request and every page of its files.
func (p *GitHubProvider) FetchChangeRequest(ctx context.Context, repository string, number int) (*provider.ChangeRequest, error) {
	owner, repo, err := provider.SplitRepository(repository)
	if err != nil {
		return nil, p.fetchError(repository, number, err)
	}

	pr, _, err := p.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, p.fetchError(repository, number, fmt.Errorf("fetching pull request: %w", err))
	}

	cr := &provider.ChangeRequest{
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		Author:     pr.GetUser().GetLogin(),
		Repository: repository,
		HeadRef:    pr.GetHead().GetRef(),
		HeadSHA:    pr.GetHead().GetSHA(),
		BaseRef:    pr.GetBase().GetRef(),
		BaseSHA:    pr.GetBase().GetSHA(),
		CreatedAt:  pr.GetCreatedAt().Time,
		UpdatedAt:  pr.GetUpdatedAt().Time,
	}

	opts := &github.ListOptions{PerPage: filesPerPage}
	for {
		files, resp, err := p.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, p.fetchError(repository, number, fmt.Errorf("listing changed files: %w", err))
		}
		for _, f := range files {
			cr.Files = append(cr.Files, provider.ChangedFile{
				ID:   provider.FileID(f.GetFilename(), f.GetSHA()),
				Path: f.GetFilename(),
				Kind: changeKind(f.GetStatus()),
				Diff: f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return cr, nil
}

func (p *GitHubProvider) fetchError(repository string, number int, err error) error {
	return &provider.FetchError{Provider: "github", Repository: repository, Number: number, Err: err}
}

// changeKind maps GitHub's file status. Renames, copies and type changes all
// carry a patch against the new path and count as modifications.
func changeKind(status string) provider.ChangeKind {
	switch status {
	case "added":
		return provider.ChangeAdded
	case "removed":
		return provider.ChangeDeleted
	default:
		return provider.ChangeModified
	}
}

// PublishComment posts a comment on a pull request.
func (p *GitHubProvider) PublishComment(ctx context.Context, cr *provider.ChangeRequest, comment provider.Comment) error {
	owner, repo, err := provider.SplitRepository(cr.Repository)
	if err != nil {
		return p.publishError(cr, err)
	}

	body := comment.Body
	_, _, err = p.client.Issues.CreateComment(ctx, owner, repo, cr.Number, &github.IssueComment{
		Body: &body,
	})
	if err != nil {
		return p.publishError(cr, err)
	}
	return nil
}

func (p *GitHubProvider) publishError(cr *provider.ChangeRequest, err error) error {
	return &provider.PublishError{Provider: "github", Repository: cr.Repository, Number: cr.Number, Err: err}
}

// ReadFile returns a file's decoded content at ref.
func (p *GitHubProvider) ReadFile(ctx context.Context, repository, path, ref string) ([]byte, error) {
	owner, repo, err := provider.SplitRepository(repository)
	if err != nil {
		return nil, err
	}

	file, _, resp, err := p.client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("reading %s: %w", path, provider.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("reading %s: is a directory", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return []byte(content), nil
}
