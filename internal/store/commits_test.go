package store

import (
	"context"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/db"
)

// openPair opens two stores on one database directory, as two catdex
// processes would.
func openPair(t *testing.T) (dir string, watcher, writer *SQLiteStore) {
	t.Helper()
	dir = t.TempDir()

	a, err := db.Init(dir)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	b, err := db.Init(dir)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	return dir, New(a, nil), New(b, nil)
}

func TestFollowCommits_SeesOtherHandleToggle(t *testing.T) {
	dir, watcher, writer := openPair(t)
	ctx := context.Background()
	require.NoError(t, writer.Upsert(ctx, []breed.Breed{testBreed("abys", "Abyssinian")}))

	f, err := watcher.FollowCommits(dir, 20*time.Millisecond)
	require.NoError(t, err)
	defer f.Close()

	q := watcher.WatchFavorites(ctx)
	defer q.Close()
	assert.Empty(t, next(t, q))

	require.NoError(t, writer.SetFavorite(ctx, "abys", true))

	favs := next(t, q)
	require.Len(t, favs, 1)
	assert.Equal(t, "abys", favs[0].ID)
	assert.True(t, favs[0].IsFavorite)
}

func TestFollowCommits_SeesOtherHandleUpsert(t *testing.T) {
	dir, watcher, writer := openPair(t)
	ctx := context.Background()

	f, err := watcher.FollowCommits(dir, 20*time.Millisecond)
	require.NoError(t, err)
	defer f.Close()

	q := watcher.WatchAll(ctx)
	defer q.Close()
	assert.Empty(t, next(t, q))

	require.NoError(t, writer.Upsert(ctx, []breed.Breed{testBreed("beng", "Bengal")}))

	all := next(t, q)
	require.Len(t, all, 1)
	assert.Equal(t, "Bengal", all[0].Name)
}

func TestFollowCommits_QuietWithoutCommits(t *testing.T) {
	dir, watcher, _ := openPair(t)
	ctx := context.Background()

	f, err := watcher.FollowCommits(dir, 10*time.Millisecond)
	require.NoError(t, err)
	defer f.Close()

	q := watcher.WatchAll(ctx)
	defer q.Close()
	next(t, q)

	select {
	case v := <-q.C:
		t.Fatalf("unexpected snapshot without a commit: %v", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFollowCommits_CloseTwice(t *testing.T) {
	dir, watcher, _ := openPair(t)

	f, err := watcher.FollowCommits(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCommitPoll, f.interval)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
}

func TestIsDatabaseWrite(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"wal write", fsnotify.Event{Name: "/x/catdex.db-wal", Op: fsnotify.Write}, true},
		{"db write", fsnotify.Event{Name: "/x/catdex.db", Op: fsnotify.Write}, true},
		{"wal create", fsnotify.Event{Name: "/x/catdex.db-wal", Op: fsnotify.Create}, true},
		{"shm write", fsnotify.Event{Name: "/x/catdex.db-shm", Op: fsnotify.Write}, false},
		{"wal chmod", fsnotify.Event{Name: "/x/catdex.db-wal", Op: fsnotify.Chmod}, false},
		{"config", fsnotify.Event{Name: "/x/config.json", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDatabaseWrite(tt.ev))
		})
	}
}
