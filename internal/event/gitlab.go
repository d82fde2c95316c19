package event

import (
	"encoding/json"
	"time"
)

type gitLabPayload struct {
	ObjectKind       string `json:"object_kind"`
	ObjectAttributes struct {
		IID    int    `json:"iid"`
		Action string `json:"action"`
	} `json:"object_attributes"`
	Project struct {
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
}

// NormalizeGitLab converts a GitLab delivery into an IngressEvent. Only
// merge_request objects with one of the given actions are recognized.
func NormalizeGitLab(body []byte, eventType, deliveryID string, actions []string) (IngressEvent, error) {
	return normalizeGitLab(body, eventType, deliveryID, actions, time.Now())
}

func normalizeGitLab(body []byte, eventType, deliveryID string, actions []string, receivedAt time.Time) (IngressEvent, error) {
	evt := IngressEvent{
		ID:         eventID(deliveryID),
		Kind:       KindOther,
		Provider:   "gitlab",
		ReceivedAt: receivedAt,
		RawBody:    body,
	}

	if eventType != "Merge Request Hook" {
		return evt, nil
	}

	var payload gitLabPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return IngressEvent{}, &NormalizationError{Provider: "gitlab", Reason: ReasonMalformed, Err: err}
	}

	evt.Action = payload.ObjectAttributes.Action
	if payload.ObjectKind != "merge_request" || !containsAction(actions, evt.Action) {
		return evt, nil
	}

	if payload.Project.PathWithNamespace == "" {
		return IngressEvent{}, &NormalizationError{Provider: "gitlab", Reason: ReasonMissingField, Field: "project.path_with_namespace"}
	}
	if payload.ObjectAttributes.IID < 1 {
		return IngressEvent{}, &NormalizationError{Provider: "gitlab", Reason: ReasonMissingField, Field: "object_attributes.iid"}
	}

	evt.Kind = KindPullRequestUpdated
	evt.Repository = payload.Project.PathWithNamespace
	evt.Number = payload.ObjectAttributes.IID
	return evt, nil
}
