package favorites

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/hackhub/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "favorites.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestAddListRemove(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev := domain.Event{ID: 42, Title: "AI Hack Night", Provider: "MLH", Type: domain.CategoryHackathon}
	require.NoError(t, s.Add(ctx, "user-1", ev))

	got, err := s.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev, got[0])

	require.NoError(t, s.Remove(ctx, "user-1", 42))
	got, err = s.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAddIsIdempotentPerUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev := domain.Event{ID: 42, Title: "AI Hack Night", Provider: "MLH"}
	require.NoError(t, s.Add(ctx, "user-1", ev))

	ev.Description = "updated"
	require.NoError(t, s.Add(ctx, "user-1", ev))

	got, err := s.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "updated", got[0].Description)
}

func TestUsersAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "user-1", domain.Event{ID: 1, Title: "a"}))
	require.NoError(t, s.Add(ctx, "user-2", domain.Event{ID: 2, Title: "b"}))

	got, err := s.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Title)
}

func TestRemoveMissingBookmark(t *testing.T) {
	s := openTestStore(t)

	err := s.Remove(context.Background(), "user-1", 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddRejectsEventWithoutID(t *testing.T) {
	s := openTestStore(t)

	err := s.Add(context.Background(), "user-1", domain.Event{Title: "streamed, not yet persisted"})
	require.Error(t, err)
}
