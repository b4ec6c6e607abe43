// Package fields resolves logical custom-field names to the field ids of
// a particular Jira deployment.
package fields

import (
	"context"
	"strings"
	"sync"

	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/rs/zerolog"
)

// Logical field names with known aliases.
const (
	StoryPoints = "Story Points"
	Team        = "Team"
	Release     = "Release"
	Environment = "Environment"
)

var aliases = map[string][]string{
	StoryPoints: {"Story Points", "Story Point Estimate", "Story Points Estimate"},
	Team:        {"Team", "Development Team", "Team Name", "Команда"},
	Release:     {"Release", "Fix Version", "Target Release"},
	Environment: {"Environment", "Deployment Environment", "Target Environment"},
}

// Aliases returns the names tried, in order, when resolving logical.
func Aliases(logical string) []string {
	if names, ok := aliases[logical]; ok {
		return names
	}
	return []string{logical}
}

// Source reads the field catalog.
type Source interface {
	Fields(ctx context.Context) ([]jira.Field, error)
}

// Resolver caches the field catalog as a case-insensitive name to id map.
// It is built once per process and shared by concurrent callers.
type Resolver struct {
	source Source
	log    zerolog.Logger

	mu          sync.RWMutex
	initialized bool
	byName      map[string]string
	byID        map[string]jira.Field
}

// NewResolver creates an uninitialized resolver.
func NewResolver(source Source, log zerolog.Logger) *Resolver {
	return &Resolver{source: source, log: log}
}

// Initialize fetches the catalog. It is a no-op after the first success.
// A failure is logged and leaves the resolver uninitialized, so a later
// call retries.
func (r *Resolver) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	catalog, err := r.source.Fields(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to load field catalog, custom field filters disabled")
		return err
	}

	byName := make(map[string]string, len(catalog))
	byID := make(map[string]jira.Field, len(catalog))
	for _, f := range catalog {
		byID[f.ID] = f
		// a later field with the same name replaces an earlier one
		byName[strings.ToLower(f.Name)] = f.ID
	}

	r.byName = byName
	r.byID = byID
	r.initialized = true
	r.log.Debug().Int("fields", len(catalog)).Msg("field catalog loaded")
	return nil
}

// Initialized reports whether the catalog has been loaded.
func (r *Resolver) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// FieldID looks up a field id by display name, ignoring case.
func (r *Resolver) FieldID(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[strings.ToLower(name)]
	return id, ok
}

// Field returns the catalog entry for id.
func (r *Resolver) Field(id string) (jira.Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byID[id]
	return f, ok
}

// Resolve maps a logical name to a field id, trying its aliases in order.
// An uninitialized resolver resolves nothing.
func (r *Resolver) Resolve(logical string) (string, bool) {
	for _, name := range Aliases(logical) {
		if id, ok := r.FieldID(name); ok {
			return id, true
		}
	}
	return "", false
}

// ResolveOr returns the resolved id of logical, or fallback.
func (r *Resolver) ResolveOr(logical, fallback string) string {
	if id, ok := r.Resolve(logical); ok {
		return id
	}
	return fallback
}
