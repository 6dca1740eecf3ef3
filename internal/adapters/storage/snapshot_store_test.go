package storage

import (
	"context"
	"path/filepath"
	"route-audit-service/internal/platform/db"
	"route-audit-service/internal/ports"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *SqliteSnapshotStore {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, InitSchema(context.Background(), conn))

	return NewSqliteSnapshotStore(conn, "routes.v1")
}

func exerciseStore(t *testing.T, store ports.SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "empty store loads nil")

	require.NoError(t, store.Save(ctx, []byte(`{"1":{}}`)))
	require.NoError(t, store.Save(ctx, []byte(`{"2":{}}`)))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2":{}}`, string(got))
}

func TestSqliteSnapshotStore(t *testing.T) {
	exerciseStore(t, openTestDB(t))
}

func TestSQLSnapshotStore(t *testing.T) {
	// The Postgres-dialect statements ($n parameters, ON CONFLICT upsert) also
	// run on SQLite, so the store is exercised without a Postgres server.
	sqlite := openTestDB(t)
	exerciseStore(t, NewSQLSnapshotStore(sqlite.DB, "routes.v1", nil))
}

func TestRedisSnapshotStore(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := DialRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedisSnapshotStore(client, "routes.v1"))
}

func TestSnapshotStoreGuards(t *testing.T) {
	ctx := context.Background()

	_, err := (&SqliteSnapshotStore{}).Load(ctx)
	assert.Error(t, err)
	assert.Error(t, (&SQLSnapshotStore{}).Save(ctx, nil))
	assert.Error(t, (&RedisSnapshotStore{}).Save(ctx, nil))
	assert.Error(t, InitSchema(ctx, nil))
}

func TestSeedFromJSON(t *testing.T) {
	store := openTestDB(t)
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, writeFile(path, `{"100":{"pending":["41111111111"]},"200":{}}`))

	n, err := SeedFromJSON(context.Background(), store, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(got), `"41111111111"`)

	_, err = SeedFromJSON(context.Background(), store, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
