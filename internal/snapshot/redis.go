package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackhub/hackhub/internal/domain"
)

// snapshotTTL bounds how long stale run snapshots linger in redis. The
// "latest" alias is rewritten on every insert, so expiry only ever removes
// abandoned runs.
const snapshotTTL = 24 * time.Hour

// redisStore keeps snapshots in redis, for deployments where several daemon
// replicas share one recovery cache.
type redisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds redis connection settings for the snapshot backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisStore{client: client, prefix: "hackhub:snapshot:"}, nil
}

// newRedisStoreWithClient is used by tests to inject a miniredis-backed client.
func newRedisStoreWithClient(client *redis.Client) Store {
	return &redisStore{client: client, prefix: "hackhub:snapshot:"}
}

func (s *redisStore) Write(ctx context.Context, key string, events []domain.Event) error {
	buf, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, buf, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Read(ctx context.Context, key string) ([]domain.Event, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var events []domain.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return events, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
