package storage

import (
	"context"
	"errors"
	"fmt"
	"route-audit-service/internal/platform/db"
	"route-audit-service/internal/ports"
	"strings"

	"go.uber.org/zap"
)

// Store drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type OpenOptions struct {
	Driver      string
	DBPath      string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Key string
	Log *zap.Logger
}

// Open builds the snapshot store selected by opts.Driver, creating the SQL
// schema when needed. The returned close func releases the connection.
func Open(ctx context.Context, opts OpenOptions) (ports.SnapshotStore, func() error, error) {
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		return nil, nil, errors.New("open store: snapshot key must not be empty")
	}

	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverSQLite, "":
		conn, err := db.OpenSQLite(opts.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		if err := InitSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return NewSqliteSnapshotStore(conn, key), conn.Close, nil

	case DriverPostgres:
		if strings.TrimSpace(opts.DatabaseURL) == "" {
			return nil, nil, fmt.Errorf("open store: DATABASE_URL is required for driver %q", DriverPostgres)
		}
		conn, err := db.Open(opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		if err := InitSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return NewSQLSnapshotStore(conn, key, opts.Log), conn.Close, nil

	case DriverRedis:
		client, err := DialRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return NewRedisSnapshotStore(client, key), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("open store: unknown driver %q", opts.Driver)
	}
}
