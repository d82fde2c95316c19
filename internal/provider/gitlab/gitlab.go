package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/xanzy/go-gitlab"

	"github.com/drewdunne/codecritic/internal/provider"
)

const diffsPerPage = 100

// DefaultTimeout bounds each API request.
const DefaultTimeout = 30 * time.Second

// GitLabProvider implements provider.Provider for GitLab.
type GitLabProvider struct {
	client *gitlab.Client
}

// Option configures the GitLab provider.
type Option func(*http.Client)

// WithTimeout overrides DefaultTimeout. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *http.Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// New creates a new GitLab provider. baseURL may be empty for gitlab.com.
func New(token, baseURL string, opts ...Option) (*GitLabProvider, error) {
	httpClient := &http.Client{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(httpClient)
	}

	clientOpts := []gitlab.ClientOptionFunc{gitlab.WithHTTPClient(httpClient)}
	if baseURL != "" {
		clientOpts = append(clientOpts, gitlab.WithBaseURL(baseURL+"/api/v4"))
	}

	client, err := gitlab.NewClient(token, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &GitLabProvider{client: client}, nil
}

// Name returns the provider name.
func (p *GitLabProvider) Name() string {
	return "gitlab"
}

// FetchChangeRequest fetches a merge request and every page of its diffs.
func (p *GitLabProvider) FetchChangeRequest(ctx context.Context, repository string, number int) (*provider.ChangeRequest, error) {
	mr, _, err := p.client.MergeRequests.GetMergeRequest(repository, number, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, p.fetchError(repository, number, fmt.Errorf("fetching merge request: %w", err))
	}

	cr := &provider.ChangeRequest{
		Number:     mr.IID,
		Title:      mr.Title,
		Repository: repository,
		HeadRef:    mr.SourceBranch,
		HeadSHA:    mr.SHA,
		BaseRef:    mr.TargetBranch,
		BaseSHA:    mr.DiffRefs.BaseSha,
	}
	if mr.Author != nil {
		cr.Author = mr.Author.Username
	}
	if mr.CreatedAt != nil {
		cr.CreatedAt = *mr.CreatedAt
	}
	if mr.UpdatedAt != nil {
		cr.UpdatedAt = *mr.UpdatedAt
	}

	opts := &gitlab.ListMergeRequestDiffsOptions{
		ListOptions: gitlab.ListOptions{PerPage: diffsPerPage},
	}
	for {
		diffs, resp, err := p.client.MergeRequests.ListMergeRequestDiffs(repository, number, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, p.fetchError(repository, number, fmt.Errorf("listing merge request diffs: %w", err))
		}
		for _, d := range diffs {
			cr.Files = append(cr.Files, changedFile(d))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return cr, nil
}

func changedFile(d *gitlab.MergeRequestDiff) provider.ChangedFile {
	kind := provider.ChangeModified
	path := d.NewPath
	switch {
	case d.NewFile:
		kind = provider.ChangeAdded
	case d.DeletedFile:
		kind = provider.ChangeDeleted
		path = d.OldPath
	}
	return provider.ChangedFile{
		ID:   provider.FileID(path, d.Diff),
		Path: path,
		Kind: kind,
		Diff: d.Diff,
	}
}

func (p *GitLabProvider) fetchError(repository string, number int, err error) error {
	return &provider.FetchError{Provider: "gitlab", Repository: repository, Number: number, Err: err}
}

// PublishComment posts a note on a merge request.
func (p *GitLabProvider) PublishComment(ctx context.Context, cr *provider.ChangeRequest, comment provider.Comment) error {
	_, _, err := p.client.Notes.CreateMergeRequestNote(cr.Repository, cr.Number, &gitlab.CreateMergeRequestNoteOptions{
		Body: gitlab.Ptr(comment.Body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return &provider.PublishError{Provider: "gitlab", Repository: cr.Repository, Number: cr.Number, Err: err}
	}
	return nil
}

// ReadFile returns a file's raw content at ref, or on the default branch
// when ref is empty.
func (p *GitLabProvider) ReadFile(ctx context.Context, repository, path, ref string) ([]byte, error) {
	opts := &gitlab.GetRawFileOptions{}
	if ref != "" {
		opts.Ref = gitlab.Ptr(ref)
	}
	data, resp, err := p.client.RepositoryFiles.GetRawFile(repository, path, opts, gitlab.WithContext(ctx))
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("reading %s: %w", path, provider.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s at %q: %w", path, ref, err)
	}
	return data, nil
}
