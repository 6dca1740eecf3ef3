package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-audit-service/internal/platform/obs"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SQLSnapshotStore is a Postgres-dialect blob store for the serialized route
// collection, used with the pgx driver.
type SQLSnapshotStore struct {
	DB  *sql.DB
	Key string
	Log *zap.Logger
}

func NewSQLSnapshotStore(db *sql.DB, key string, log *zap.Logger) *SQLSnapshotStore {
	return &SQLSnapshotStore{DB: db, Key: key, Log: log}
}

// Replace the stored snapshot.
func (s *SQLSnapshotStore) Save(ctx context.Context, data []byte) (err error) {
	defer obs.Time(ctx, s.Log, "snapshot.sql.Save")(&err)

	if s.DB == nil {
		return errors.New("snapshot store: db is nil")
	}
	if strings.TrimSpace(s.Key) == "" {
		return errors.New("save snapshot: key must not be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO route_snapshots (snapshot_key, payload, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (snapshot_key) DO UPDATE
	SET payload = EXCLUDED.payload,
		updated_at = EXCLUDED.updated_at;
	`, s.Key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("save snapshot key=%q: %w", s.Key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot commit: %w", err)
	}

	return nil
}

// Fetch the stored snapshot; nil when the key has never been written.
func (s *SQLSnapshotStore) Load(ctx context.Context) (_ []byte, err error) {
	defer obs.Time(ctx, s.Log, "snapshot.sql.Load")(&err)

	if s.DB == nil {
		return nil, errors.New("snapshot store: db is nil")
	}

	var payload string
	err = s.DB.QueryRowContext(ctx, `
	SELECT payload
	FROM route_snapshots
	WHERE snapshot_key = $1;
	`, s.Key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot key=%q: %w", s.Key, err)
	}

	return []byte(payload), nil
}
