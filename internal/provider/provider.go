package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by ReadFile when the file doesn't exist at ref.
var ErrNotFound = errors.New("not found")

// Provider defines the interface for source host operations. Implementations
// must be safe for concurrent use.
type Provider interface {
	// Name returns the provider name (github, gitlab).
	Name() string

	// FetchChangeRequest fetches a change request and all of its changed files.
	FetchChangeRequest(ctx context.Context, repository string, number int) (*ChangeRequest, error)

	// PublishComment posts a comment on the change request.
	PublishComment(ctx context.Context, cr *ChangeRequest, comment Comment) error

	// ReadFile returns a file's content at ref.
	ReadFile(ctx context.Context, repository, path, ref string) ([]byte, error)
}

// FetchError reports a change request that could not be retrieved.
type FetchError struct {
	Provider   string
	Repository string
	Number     int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s change request %s#%d: %v", e.Provider, e.Repository, e.Number, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PublishError reports a comment the host refused or never received.
type PublishError struct {
	Provider   string
	Repository string
	Number     int
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing comment on %s change request %s#%d: %v", e.Provider, e.Repository, e.Number, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
