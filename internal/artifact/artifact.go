// Package artifact persists rendered reports: the markdown goes to file
// storage, the metadata to a MetadataStore.
package artifact

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no artifact matches.
var ErrNotFound = errors.New("artifact not found")

// Artifact is the metadata of one stored report.
type Artifact struct {
	ID          uuid.UUID  `json:"id"`
	Owner       string     `json:"owner"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	StoragePath string     `json:"storagePath"`
	ProjectKey  string     `json:"projectKey"`
	DateFrom    *time.Time `json:"dateFrom,omitempty"`
	DateTo      *time.Time `json:"dateTo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Size        int64      `json:"size"`
}

// ListOptions filters ListReports. Zero values match everything.
type ListOptions struct {
	Owner string
	Type  string
	Limit int
}

// MetadataStore keeps artifact metadata. SaveReport upserts by storage
// path: saving a second report of the same owner, type and day replaces the
// first and keeps its ID.
type MetadataStore interface {
	SaveReport(ctx context.Context, a *Artifact) error
	ListReports(ctx context.Context, opts ListOptions) ([]Artifact, error)
	GetReport(ctx context.Context, id uuid.UUID) (*Artifact, error)
}

// StoragePath returns {owner}/{type}/{YYYY-MM-DD}.md.
func StoragePath(owner, kind string, day time.Time) string {
	return path.Join(sanitize(owner), sanitize(kind), day.Format("2006-01-02")+".md")
}

// sanitize keeps a single safe path segment.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '@', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "_"
	}
	return out
}
