package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/rs/zerolog"
)

// Runs only against a disposable database named by JIRAPULSE_TEST_POSTGRES_DSN
func TestPGStore(t *testing.T) {
	dsn := os.Getenv("JIRAPULSE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("JIRAPULSE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	store, err := OpenPostgres(ctx, dsn, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenPostgres() error: %v", err)
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	owner := "test-" + uuid.NewString()
	day := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)
	first := testReport(owner, "weekly", day)
	if err := store.SaveReport(ctx, first); err != nil {
		t.Fatalf("SaveReport() error: %v", err)
	}
	second := testReport(owner, "weekly", day.Add(time.Hour))
	if err := store.SaveReport(ctx, second); err != nil {
		t.Fatalf("SaveReport() error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("same storage path should keep id %s, got %s", first.ID, second.ID)
	}

	list, err := store.ListReports(ctx, artifact.ListOptions{Owner: owner})
	if err != nil {
		t.Fatalf("ListReports() error: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListReports() returned %d reports, want 1", len(list))
	}

	if _, err := store.GetReport(ctx, uuid.New()); err != artifact.ErrNotFound {
		t.Errorf("GetReport() error = %v, want ErrNotFound", err)
	}

	project := "T" + uuid.NewString()[:8]
	if err := store.SaveSnapshot(ctx, project, day, map[string]int{"Done": 2, "To Do": 1}); err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}
	snaps, err := store.GetSnapshots(ctx, project, day)
	if err != nil {
		t.Fatalf("GetSnapshots() error: %v", err)
	}
	if len(snaps) != 2 || snaps[0].Date != "2024-01-08" {
		t.Errorf("GetSnapshots() = %+v", snaps)
	}

	id, err := store.RecordRunStart(ctx, "weekly", "test")
	if err != nil {
		t.Fatalf("RecordRunStart() error: %v", err)
	}
	if err := store.RecordRunComplete(ctx, id, ""); err != nil {
		t.Fatalf("RecordRunComplete() error: %v", err)
	}
}
