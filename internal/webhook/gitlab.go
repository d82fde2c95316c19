package webhook

import (
	"crypto/subtle"
	"net/http"
	"time"
)

// GitLabHandler handles GitLab webhook requests. GitLab sends the shared
// secret itself rather than a body signature.
type GitLabHandler struct {
	secret  []byte
	handler DeliveryHandler
	now     func() time.Time
}

// NewGitLabHandler creates a new GitLab webhook handler.
func NewGitLabHandler(secret string, handler DeliveryHandler) *GitLabHandler {
	return &GitLabHandler{
		secret:  []byte(secret),
		handler: handler,
		now:     time.Now,
	}
}

// ServeHTTP implements http.Handler.
func (h *GitLabHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	token := r.Header.Get("X-Gitlab-Token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	if subtle.ConstantTimeCompare([]byte(token), h.secret) != 1 {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	dispatch(w, r, h.handler, &Delivery{
		Provider:   "gitlab",
		EventType:  r.Header.Get("X-Gitlab-Event"),
		DeliveryID: r.Header.Get("X-Gitlab-Event-UUID"),
		Body:       body,
		ReceivedAt: h.now(),
	})
}
