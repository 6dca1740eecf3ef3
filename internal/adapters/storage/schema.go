package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"route-audit-service/internal/domain"
	"route-audit-service/internal/ports"
)

// InitSchema creates the snapshot table. The DDL is accepted by both SQLite
// and Postgres.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createSnapshotsQuery := `
	CREATE TABLE IF NOT EXISTS route_snapshots (
		snapshot_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`

	statements := []string{
		createSnapshotsQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// SeedFromJSON validates a serialized route collection read from jsonPath and
// stores it as the current snapshot. It returns the number of routes seeded.
func SeedFromJSON(ctx context.Context, store ports.SnapshotStore, jsonPath string) (int, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed routes: read %q: %w", jsonPath, err)
	}

	routes, err := domain.UnmarshalRoutes(data)
	if err != nil {
		return 0, fmt.Errorf("seed routes: parse json: %w", err)
	}

	for _, r := range routes.Ordered() {
		if r.RouteID == "" {
			return 0, errors.New("seed routes: route with empty id")
		}
	}

	// Re-marshal so the stored payload is canonical.
	canonical, err := domain.MarshalRoutes(routes)
	if err != nil {
		return 0, fmt.Errorf("seed routes: %w", err)
	}

	if err := store.Save(ctx, canonical); err != nil {
		return 0, fmt.Errorf("seed routes: save: %w", err)
	}

	return routes.Len(), nil
}
