package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxBodyBytes caps webhook payloads at the size GitHub documents as its limit.
const MaxBodyBytes = 25 << 20

// Delivery is a verified webhook request, before normalization.
type Delivery struct {
	Provider   string
	EventType  string
	DeliveryID string
	Body       []byte
	ReceivedAt time.Time
}

// DeliveryHandler is called for every delivery that passed verification.
// The returned string is sent back as the acknowledgement body. Returning an
// error makes the endpoint answer 500.
type DeliveryHandler func(ctx context.Context, d *Delivery) (string, error)

// readBody reads the capped request body. It writes the error response itself
// and returns false when the body can't be used.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// dispatch hands a verified delivery to the handler and writes the response.
func dispatch(w http.ResponseWriter, r *http.Request, handler DeliveryHandler, d *Delivery) {
	ack, err := handler(r.Context(), d)
	if err != nil {
		http.Error(w, fmt.Sprintf("processing %s delivery: %v", d.Provider, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ack)
}
