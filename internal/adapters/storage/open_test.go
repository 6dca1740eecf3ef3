package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		store, closeFn, err := Open(ctx, OpenOptions{
			Driver: DriverSQLite,
			DBPath: filepath.Join(t.TempDir(), "nested", "audit.db"),
			Key:    "routes.v1",
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = closeFn() })

		assert.IsType(t, &SqliteSnapshotStore{}, store)
		exerciseStore(t, store)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, closeFn, err := Open(ctx, OpenOptions{Driver: "REDIS", RedisAddr: mr.Addr(), Key: "routes.v1"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = closeFn() })

		assert.IsType(t, &RedisSnapshotStore{}, store)
	})

	t.Run("rejects bad options", func(t *testing.T) {
		_, _, err := Open(ctx, OpenOptions{Driver: "mongo", Key: "k"})
		assert.ErrorContains(t, err, "unknown driver")

		_, _, err = Open(ctx, OpenOptions{Driver: DriverPostgres, Key: "k"})
		assert.ErrorContains(t, err, "DATABASE_URL")

		_, _, err = Open(ctx, OpenOptions{Driver: DriverSQLite, DBPath: filepath.Join(t.TempDir(), "x.db")})
		assert.ErrorContains(t, err, "key")
	})
}
