package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLite backed blob store for the serialized route collection.
type SqliteSnapshotStore struct {
	DB  *sql.DB
	Key string
}

func NewSqliteSnapshotStore(db *sql.DB, key string) *SqliteSnapshotStore {
	return &SqliteSnapshotStore{DB: db, Key: key}
}

// Replace the stored snapshot.
func (s *SqliteSnapshotStore) Save(ctx context.Context, data []byte) error {
	if s.DB == nil {
		return errors.New("snapshot store: db is nil")
	}
	if strings.TrimSpace(s.Key) == "" {
		return errors.New("save snapshot: key must not be empty")
	}

	q := `
	INSERT OR REPLACE INTO route_snapshots (
		snapshot_key,
		payload,
		updated_at
	)
	VALUES (?, ?, ?);
	`
	if _, err := s.DB.ExecContext(ctx, q, s.Key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("save snapshot key=%q: %w", s.Key, err)
	}

	return nil
}

// Fetch the stored snapshot; nil when the key has never been written.
func (s *SqliteSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	if s.DB == nil {
		return nil, errors.New("snapshot store: db is nil")
	}

	q := `
	SELECT payload
	FROM route_snapshots
	WHERE snapshot_key = ?;
	`

	var payload string
	err := s.DB.QueryRowContext(ctx, q, s.Key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot key=%q: %w", s.Key, err)
	}

	return []byte(payload), nil
}
