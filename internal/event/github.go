package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// gitHubPayload is the subset of a pull_request payload the service reads.
type gitHubPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// NormalizeGitHub converts a GitHub delivery into an IngressEvent. Only the
// pull_request event with one of the given actions is recognized; every other
// event or action yields KindOther.
func NormalizeGitHub(body []byte, eventType, deliveryID string, actions []string) (IngressEvent, error) {
	return normalizeGitHub(body, eventType, deliveryID, actions, time.Now())
}

func normalizeGitHub(body []byte, eventType, deliveryID string, actions []string, receivedAt time.Time) (IngressEvent, error) {
	evt := IngressEvent{
		ID:         eventID(deliveryID),
		Kind:       KindOther,
		Provider:   "github",
		ReceivedAt: receivedAt,
		RawBody:    body,
	}

	if eventType != "pull_request" {
		return evt, nil
	}

	var payload gitHubPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return IngressEvent{}, &NormalizationError{Provider: "github", Reason: ReasonMalformed, Err: err}
	}

	evt.Action = payload.Action
	if !containsAction(actions, payload.Action) {
		return evt, nil
	}

	number := payload.Number
	if number == 0 {
		number = payload.PullRequest.Number
	}

	if payload.Repository.FullName == "" {
		return IngressEvent{}, &NormalizationError{Provider: "github", Reason: ReasonMissingField, Field: "repository.full_name"}
	}
	if number < 1 {
		return IngressEvent{}, &NormalizationError{Provider: "github", Reason: ReasonMissingField, Field: "number"}
	}

	evt.Kind = KindPullRequestUpdated
	evt.Repository = payload.Repository.FullName
	evt.Number = number
	return evt, nil
}

func eventID(deliveryID string) string {
	if deliveryID != "" {
		return deliveryID
	}
	return uuid.NewString()
}
