package event

import (
	"errors"
	"testing"
)

var defaultMRActions = []string{"open", "update", "reopen"}

func TestNormalizeGitLab_MROpened(t *testing.T) {
	raw := []byte(`{
		"object_kind": "merge_request",
		"object_attributes": {
			"iid": 42,
			"title": "Test MR",
			"action": "open"
		},
		"project": {
			"path_with_namespace": "group/repo"
		},
		"user": {"username": "actor"}
	}`)

	evt, err := NormalizeGitLab(raw, "Merge Request Hook", "uuid-1", defaultMRActions)
	if err != nil {
		t.Fatalf("NormalizeGitLab() error = %v", err)
	}

	if evt.Kind != KindPullRequestUpdated {
		t.Errorf("Kind = %q, want %q", evt.Kind, KindPullRequestUpdated)
	}
	if evt.Number != 42 {
		t.Errorf("Number = %d, want %d", evt.Number, 42)
	}
	if evt.Repository != "group/repo" {
		t.Errorf("Repository = %q, want %q", evt.Repository, "group/repo")
	}
	if evt.Provider != "gitlab" {
		t.Errorf("Provider = %q, want %q", evt.Provider, "gitlab")
	}
}

func TestNormalizeGitLab_OtherKinds(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		body      string
	}{
		{"note hook", "Note Hook", `{"object_kind":"note"}`},
		{"merged", "Merge Request Hook", `{"object_kind":"merge_request","object_attributes":{"iid":1,"action":"merge"},"project":{"path_with_namespace":"g/r"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := NormalizeGitLab([]byte(tt.body), tt.eventType, "", defaultMRActions)
			if err != nil {
				t.Fatalf("NormalizeGitLab() error = %v", err)
			}
			if evt.Kind != KindOther {
				t.Errorf("Kind = %q, want %q", evt.Kind, KindOther)
			}
		})
	}
}

func TestNormalizeGitLab_MissingIID(t *testing.T) {
	raw := []byte(`{"object_kind":"merge_request","object_attributes":{"action":"update"},"project":{"path_with_namespace":"g/r"}}`)

	_, err := NormalizeGitLab(raw, "Merge Request Hook", "", defaultMRActions)

	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("error = %v, want *NormalizationError", err)
	}
	if nerr.Reason != ReasonMissingField || nerr.Field != "object_attributes.iid" {
		t.Errorf("error = %+v, want missing object_attributes.iid", nerr)
	}
}

func TestNormalizeGitLab_Malformed(t *testing.T) {
	_, err := NormalizeGitLab([]byte(`[`), "Merge Request Hook", "", defaultMRActions)

	var nerr *NormalizationError
	if !errors.As(err, &nerr) || nerr.Reason != ReasonMalformed {
		t.Errorf("error = %v, want malformed NormalizationError", err)
	}
}
