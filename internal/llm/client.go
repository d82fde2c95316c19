// Package llm adapts chat-completion backends into an analysis.Reviewer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/drewdunne/codecritic/internal/config"
	"github.com/drewdunne/codecritic/internal/retry"
)

// Request is a single-turn completion request.
type Request struct {
	Model     string
	System    string
	User      string
	MaxTokens int
}

// Client completes a prompt against a language model backend.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrEmptyResponse is returned when the backend answers without any text.
var ErrEmptyResponse = errors.New("empty response from backend")

const defaultHTTPTimeout = 120 * time.Second

// NewClient returns the backend selected by cfg.Backend.
func NewClient(cfg config.ReviewConfig) (Client, error) {
	switch cfg.Backend {
	case "anthropic":
		var opts []Option
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		return NewAnthropic(cfg.APIKey, opts...), nil
	case "openai":
		var opts []Option
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		return NewOpenAI(cfg.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown review backend %q", cfg.Backend)
	}
}

// Option configures an HTTP backend.
type Option func(*httpBackend)

// WithBaseURL sets a custom base URL (for testing or proxies).
func WithBaseURL(url string) Option {
	return func(b *httpBackend) {
		b.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *httpBackend) {
		b.client = c
	}
}

type httpBackend struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newHTTPBackend(apiKey, baseURL string, opts []Option) httpBackend {
	b := httpBackend{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// statusError turns a non-200 response into an error. Server errors and rate
// limiting are transient; other client errors are not.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
			return retry.TransientAfter(err, time.Duration(secs)*time.Second)
		}
		return retry.Transient(err)
	case resp.StatusCode >= 500:
		return retry.Transient(err)
	default:
		return err
	}
}
