package snapshot

import (
	"context"
	"fmt"
)

// Open creates a snapshot store for the configured backend.
//   - "memory": no durability, for tests and ephemeral deployments
//   - "file":   one JSON file per key under dir (default)
//   - "redis":  shared cache at redisAddr
func Open(ctx context.Context, backend, dir, redisAddr string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dir)
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, RedisConfig{Addr: redisAddr})
	default:
		return nil, fmt.Errorf("unknown snapshot backend: %s", backend)
	}
}
