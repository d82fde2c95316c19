package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ChangeKind classifies how a file was touched by a change request.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// ChangeRequest is a pull request (GitHub) or merge request (GitLab) with its
// changed files, in the order the host returned them.
type ChangeRequest struct {
	Number     int // PR number (GitHub) or MR IID (GitLab)
	Title      string
	Author     string
	Repository string // owner/name
	HeadRef    string
	HeadSHA    string
	BaseRef    string // target branch
	BaseSHA    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Files      []ChangedFile
}

// Ref returns the most precise revision of the change request head.
func (cr *ChangeRequest) Ref() string {
	if cr.HeadSHA != "" {
		return cr.HeadSHA
	}
	return cr.HeadRef
}

// BaseRevision returns the revision of the branch the change request targets.
// An empty result means the repository's default branch.
func (cr *ChangeRequest) BaseRevision() string {
	if cr.BaseSHA != "" {
		return cr.BaseSHA
	}
	return cr.BaseRef
}

// ChangedFile is one file of a change request with its unified diff.
type ChangedFile struct {
	ID   string // see FileID
	Path string
	Kind ChangeKind
	Diff string // may be empty (binary files, pure renames)
}

// Comment is a rendered review ready to be published.
type Comment struct {
	ID        string
	Body      string
	CreatedAt time.Time
}

// SplitRepository splits "owner/name" into its parts. GitLab namespaces may
// contain further slashes; they stay in the owner.
func SplitRepository(repository string) (owner, name string, err error) {
	i := strings.LastIndex(repository, "/")
	if i <= 0 || i == len(repository)-1 {
		return "", "", fmt.Errorf("invalid repository %q, want owner/name", repository)
	}
	return repository[:i], repository[i+1:], nil
}

// FileID derives a stable file identifier from the path and a content token
// (blob SHA or diff). Including the path keeps identical files apart.
func FileID(path, content string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
