package ports

import "context"

// Port: a key-value blob store holding the serialized route collection.
type SnapshotStore interface {
	// Persist replaces the stored snapshot.
	Save(ctx context.Context, data []byte) error
	// Return the stored snapshot, or nil when nothing has been saved yet.
	Load(ctx context.Context) ([]byte, error)
}
