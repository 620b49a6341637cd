package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/hackhub/hackhub/internal/domain"
)

// fileStore keeps one JSON file per key under a data directory. Writes go
// through renameio: temp file, fsync, atomic rename, so a crash mid-write can
// never leave a truncated snapshot behind.
type fileStore struct {
	dir string
}

// NewFileStore creates a file-backed snapshot store rooted at dir.
func NewFileStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

// keyPath maps a key to a file name. Keys contain only roster names, uuids
// and the "run:"/"latest" prefixes, so replacing the separator is enough.
func (s *fileStore) keyPath(key string) string {
	name := strings.ReplaceAll(key, ":", "_")
	return filepath.Join(s.dir, name+".json")
}

func (s *fileStore) Write(ctx context.Context, key string, events []domain.Event) error {
	pending, err := renameio.NewPendingFile(s.keyPath(key))
	if err != nil {
		return fmt.Errorf("create pending snapshot: %w", err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if err := json.NewEncoder(pending).Encode(events); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace snapshot: %w", err)
	}
	return nil
}

func (s *fileStore) Read(ctx context.Context, key string) ([]domain.Event, error) {
	raw, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var events []domain.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return events, nil
}

func (s *fileStore) Close() error { return nil }
