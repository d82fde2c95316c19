package webhook

import (
	"net/http"
	"time"
)

// GitHubHandler handles GitHub webhook requests.
type GitHubHandler struct {
	secret  []byte
	handler DeliveryHandler
	now     func() time.Time
}

// NewGitHubHandler creates a new GitHub webhook handler.
func NewGitHubHandler(secret string, handler DeliveryHandler) *GitHubHandler {
	return &GitHubHandler{
		secret:  []byte(secret),
		handler: handler,
		now:     time.Now,
	}
}

// ServeHTTP implements http.Handler.
func (h *GitHubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if signature == "" {
		http.Error(w, "missing signature", http.StatusUnauthorized)
		return
	}

	if !Verify(body, signature, h.secret) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	dispatch(w, r, h.handler, &Delivery{
		Provider:   "github",
		EventType:  r.Header.Get("X-GitHub-Event"),
		DeliveryID: r.Header.Get("X-GitHub-Delivery"),
		Body:       body,
		ReceivedAt: h.now(),
	})
}
