package artifact

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request describes a freshly generated report.
type Request struct {
	Owner      string
	Type       string
	Title      string
	ProjectKey string
	DateFrom   *time.Time
	DateTo     *time.Time
	Content    string
	// CreatedAt dates the artifact; zero means now.
	CreatedAt time.Time
}

// Service stores reports in file storage and records their metadata.
type Service struct {
	store MetadataStore
	files *FileStorage
	now   func() time.Time
	log   zerolog.Logger
}

// NewService creates a service.
func NewService(store MetadataStore, files *FileStorage, log zerolog.Logger) *Service {
	return &Service{store: store, files: files, now: time.Now, log: log}
}

// Save writes the report and its metadata. Errors are logged and returned;
// callers that only deliver the report to a user may ignore them.
func (s *Service) Save(ctx context.Context, req Request) (*Artifact, error) {
	now := req.CreatedAt
	if now.IsZero() {
		now = s.now()
	}
	a := &Artifact{
		ID:          uuid.New(),
		Owner:       req.Owner,
		Type:        req.Type,
		Title:       fmt.Sprintf("%s - %s", req.Title, now.Format("02.01.2006")),
		StoragePath: StoragePath(req.Owner, req.Type, now),
		ProjectKey:  req.ProjectKey,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		CreatedAt:   now,
	}
	log := s.log.With().Str("report", req.Type).Str("path", a.StoragePath).Logger()

	size, err := s.files.Write(a.StoragePath, []byte(req.Content))
	if err != nil {
		log.Warn().Err(err).Msg("failed to store report")
		return nil, err
	}
	a.Size = size

	if err := s.store.SaveReport(ctx, a); err != nil {
		log.Warn().Err(err).Msg("failed to record report metadata")
		return nil, fmt.Errorf("failed to record report: %w", err)
	}

	log.Info().Str("id", a.ID.String()).Int64("size", a.Size).Msg("report saved")
	return a, nil
}

// List returns stored reports, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Artifact, error) {
	return s.store.ListReports(ctx, opts)
}

// Get returns a stored report and its markdown.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Artifact, string, error) {
	a, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, "", err
	}
	content, err := s.files.Read(a.StoragePath)
	if err != nil {
		return a, "", fmt.Errorf("failed to read report %s: %w", a.StoragePath, err)
	}
	return a, string(content), nil
}
