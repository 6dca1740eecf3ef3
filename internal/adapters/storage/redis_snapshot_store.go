package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps the serialized route collection under one Redis key.
type RedisSnapshotStore struct {
	Client *redis.Client
	Key    string
}

func NewRedisSnapshotStore(client *redis.Client, key string) *RedisSnapshotStore {
	return &RedisSnapshotStore{Client: client, Key: key}
}

// DialRedis connects and pings a Redis server.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dial redis %q: %w", addr, err)
	}
	return client, nil
}

// Replace the stored snapshot.
func (s *RedisSnapshotStore) Save(ctx context.Context, data []byte) error {
	if s.Client == nil {
		return errors.New("snapshot store: redis client is nil")
	}
	if strings.TrimSpace(s.Key) == "" {
		return errors.New("save snapshot: key must not be empty")
	}

	if err := s.Client.Set(ctx, s.Key, data, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot key=%q: %w", s.Key, err)
	}
	return nil
}

// Fetch the stored snapshot; nil when the key has never been written.
func (s *RedisSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	if s.Client == nil {
		return nil, errors.New("snapshot store: redis client is nil")
	}

	b, err := s.Client.Get(ctx, s.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot key=%q: %w", s.Key, err)
	}
	return b, nil
}
