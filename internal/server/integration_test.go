package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/drewdunne/codecritic/internal/analysis"
	"github.com/drewdunne/codecritic/internal/dispatch"
	"github.com/drewdunne/codecritic/internal/event"
	"github.com/drewdunne/codecritic/internal/handler"
	"github.com/drewdunne/codecritic/internal/lint"
	"github.com/drewdunne/codecritic/internal/logging"
	"github.com/drewdunne/codecritic/internal/metrics"
	"github.com/drewdunne/codecritic/internal/provider"
	"github.com/drewdunne/codecritic/internal/registry"
	"github.com/drewdunne/codecritic/internal/webhook"
)

// recordingProvider serves one fixed pull request and captures comments.
type recordingProvider struct {
	cr        *provider.ChangeRequest
	published chan provider.Comment
}

func (p *recordingProvider) Name() string { return "github" }

func (p *recordingProvider) FetchChangeRequest(ctx context.Context, repository string, number int) (*provider.ChangeRequest, error) {
	if repository != p.cr.Repository || number != p.cr.Number {
		return nil, fmt.Errorf("unexpected change request %s#%d", repository, number)
	}
	return p.cr, nil
}

func (p *recordingProvider) PublishComment(ctx context.Context, cr *provider.ChangeRequest, c provider.Comment) error {
	p.published <- c
	return nil
}

func (p *recordingProvider) ReadFile(ctx context.Context, repository, path, ref string) ([]byte, error) {
	return nil, provider.ErrNotFound
}

type echoReviewer struct{}

func (echoReviewer) Review(ctx context.Context, f provider.ChangedFile) (string, error) {
	return "### Review of " + f.Path + "\n\nLooks reasonable.", nil
}

// TestIntegration_WebhookToComment drives a signed pull_request webhook
// through routing, dispatch, analysis and publishing.
func TestIntegration_WebhookToComment(t *testing.T) {
	metrics.Reset()

	cfg := testConfig()
	cfg.Logging.Dir = t.TempDir()

	prov := &recordingProvider{
		cr: &provider.ChangeRequest{
			Number:     42,
			Repository: "acme/shop",
			HeadSHA:    "abc",
			Files: []provider.ChangedFile{
				{ID: "a", Path: "src/Cart.java", Kind: provider.ChangeModified,
					Diff: "@@ -1,1 +1,2 @@\n class Cart {\n+  String apiKey = \"sk-12345\";\n"},
				{ID: "b", Path: "docs/notes.md", Kind: provider.ChangeAdded, Diff: "@@ -0,0 +1 @@\n+TODO\n"},
			},
		},
		published: make(chan provider.Comment, 1),
	}

	reg, err := registry.New(cfg)
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}
	reg.Register(prov)

	dispatcher := dispatch.New(dispatch.Config{Workers: 2, QueueSize: 4})

	orch := analysis.New(lint.NewRuleAnalyzer(cfg.Lint.MaxLineLength), echoReviewer{}, analysis.Options{
		FileSuffix:  cfg.Analysis.FileSuffix,
		MaxInFlight: cfg.Analysis.MaxInFlight,
		RunTimeout:  5 * time.Second,
	}, nil)
	reviews := handler.NewReviewHandler(reg, orch, cfg, logging.NewWriter(cfg.Logging.Dir), nil)
	router := event.NewRouter(cfg.Events, dispatcher, reviews.Handle, nil)

	srv := New(cfg, Options{Deliveries: router.HandleDelivery, Dispatcher: dispatcher})

	ctx, stop := context.WithCancel(context.Background())
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run(ctx)
	}()

	select {
	case <-srv.Ready():
	case err := <-serverErr:
		t.Fatalf("Server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server failed to start within timeout")
	}
	defer func() {
		stop()
		if err := <-serverErr; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()

	baseURL := "http://" + srv.Addr()

	t.Run("ignored_action", func(t *testing.T) {
		payload := `{"action":"closed","number":42,"repository":{"full_name":"acme/shop"}}`
		resp := postGitHub(t, baseURL, payload)
		if resp != "Webhook received" {
			t.Errorf("ack = %q, want %q", resp, "Webhook received")
		}
	})

	t.Run("pull_request_opened", func(t *testing.T) {
		payload := `{"action":"opened","number":42,"repository":{"full_name":"acme/shop"}}`
		resp := postGitHub(t, baseURL, payload)
		if resp != "Review scheduled for github/acme/shop#42" {
			t.Errorf("ack = %q", resp)
		}

		select {
		case c := <-prov.published:
			if !strings.Contains(c.Body, "### src/Cart.java\n\n- **") {
				t.Errorf("comment missing static section for Cart.java:\n%s", c.Body)
			}
			if !strings.Contains(c.Body, "### Review of src/Cart.java") {
				t.Errorf("comment missing review of Cart.java:\n%s", c.Body)
			}
			if !strings.Contains(c.Body, "- **HIGH**: Possible hard-coded credential (line 2, column 10)") {
				t.Errorf("comment missing credential finding:\n%s", c.Body)
			}
			if strings.Contains(c.Body, "notes.md") {
				t.Errorf("comment includes ineligible file:\n%s", c.Body)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("no comment published")
		}
	})

	t.Run("metrics", func(t *testing.T) {
		// The run records its metrics just after publishing returns.
		deadline := time.Now().Add(2 * time.Second)
		var m metrics.Metrics
		for {
			m = fetchMetrics(t, baseURL)
			if m.CommentsPublished == 1 || time.Now().After(deadline) {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}

		if m.WebhooksReceived != 2 || m.WebhooksIgnored != 1 || m.RunsDispatched != 1 {
			t.Errorf("metrics = %+v", m)
		}
		if m.CommentsPublished != 1 || m.RunsCompleted != 1 {
			t.Errorf("CommentsPublished = %d, RunsCompleted = %d, want 1 and 1", m.CommentsPublished, m.RunsCompleted)
		}
	})
}

func fetchMetrics(t *testing.T, baseURL string) metrics.Metrics {
	t.Helper()

	resp, err := http.Get(baseURL + "/metrics")
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer resp.Body.Close()

	var m metrics.Metrics
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("Failed to decode metrics response: %v", err)
	}
	return m
}

func postGitHub(t *testing.T, baseURL, payload string) string {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, baseURL+"/webhook/github", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("X-Hub-Signature-256", webhook.Signature([]byte(payload), []byte("gh-secret")))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to send webhook: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GitHub webhook status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read ack: %v", err)
	}
	return strings.TrimSpace(string(body))
}
