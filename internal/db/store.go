package db

import (
	"context"
	"fmt"
	"time"

	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/kiracore/jirapulse/internal/config"
	"github.com/rs/zerolog"
)

// Store is the persistence both backends provide
type Store interface {
	artifact.MetadataStore
	SaveSnapshot(ctx context.Context, projectKey string, date time.Time, counts map[string]int) error
	GetSnapshots(ctx context.Context, projectKey string, since time.Time) ([]StatusSnapshot, error)
	GetLastSnapshot(ctx context.Context, projectKey string) (*time.Time, error)
	RecordRunStart(ctx context.Context, kind, trigger string) (int64, error)
	RecordRunComplete(ctx context.Context, runID int64, errMsg string) error
	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*PGStore)(nil)
)

// OpenStore opens and initializes the backend selected by cfg
func OpenStore(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		database, err := Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := database.Init(); err != nil {
			database.Close()
			return nil, err
		}
		log.Debug().Str("path", database.Path()).Msg("using sqlite store")
		return database, nil
	case "postgres":
		pg, err := OpenPostgres(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		if err := pg.Init(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		log.Debug().Msg("using postgres store")
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
