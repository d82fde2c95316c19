package event

import (
	"fmt"
	"time"
)

// Kind classifies an ingress event.
type Kind string

const (
	// KindPullRequestUpdated is a change request that was opened or received new commits.
	KindPullRequestUpdated Kind = "pull_request_updated"
	// KindOther is any delivery the service acknowledges without processing.
	KindOther Kind = "other"
)

// IngressEvent is the canonical record of one verified webhook delivery.
// It is passed by value and never modified after normalization.
type IngressEvent struct {
	// ID is unique per delivery.
	ID string

	Kind Kind

	// Provider is the source host (github, gitlab).
	Provider string

	// Repository is "owner/name".
	Repository string

	// Number is the change request number (>= 1 for KindPullRequestUpdated).
	Number int

	// Action is the provider's action label, kept for logging.
	Action string

	ReceivedAt time.Time

	// RawBody is the payload exactly as received.
	RawBody []byte
}

// Key identifies the change request the event refers to.
func (e IngressEvent) Key() string {
	return fmt.Sprintf("%s/%s#%d", e.Provider, e.Repository, e.Number)
}

// Reason classifies a NormalizationError.
type Reason string

const (
	ReasonMalformed    Reason = "malformed"
	ReasonMissingField Reason = "missing_field"
)

// NormalizationError reports a payload that could not be turned into an
// IngressEvent for a recognized event kind.
type NormalizationError struct {
	Provider string
	Reason   Reason
	Field    string
	Err      error
}

func (e *NormalizationError) Error() string {
	switch e.Reason {
	case ReasonMissingField:
		return fmt.Sprintf("normalizing %s event: missing field %s", e.Provider, e.Field)
	default:
		return fmt.Sprintf("normalizing %s event: malformed payload: %v", e.Provider, e.Err)
	}
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

func containsAction(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
