package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/catdex/catdex/internal/db"
	"github.com/catdex/catdex/internal/live"
)

// DefaultCommitPoll is how often the commit follower checks data_version
// when no file event arrives.
const DefaultCommitPoll = time.Second

// CommitFollower publishes on a store's hub when another connection commits
// to the database, including other catdex processes. File events on the
// database and its WAL trigger an immediate check; a ticker covers platforms
// and filesystems without events.
type CommitFollower struct {
	sqlDB  *sql.DB
	conn   *sql.Conn
	fsw    *fsnotify.Watcher
	hub    *live.Hub
	logger *slog.Logger

	interval time.Duration
	last     int64

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// FollowCommits starts a CommitFollower for the database in baseDir.
// interval <= 0 uses DefaultCommitPoll. Close the follower to stop it.
func (s *SQLiteStore) FollowCommits(baseDir string, interval time.Duration) (*CommitFollower, error) {
	if interval <= 0 {
		interval = DefaultCommitPoll
	}

	sqlDB, err := db.Open(baseDir)
	if err != nil {
		return nil, err
	}
	// data_version is per connection, so one connection is pinned for the
	// follower's lifetime.
	conn, err := sqlDB.Conn(context.Background())
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open follower connection: %w", err)
	}
	last, err := db.DataVersion(context.Background(), conn)
	if err != nil {
		conn.Close()
		sqlDB.Close()
		return nil, err
	}

	f := &CommitFollower{
		sqlDB:    sqlDB,
		conn:     conn,
		hub:      s.hub,
		logger:   s.logger,
		interval: interval,
		last:     last,
		done:     make(chan struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		err = fsw.Add(baseDir)
		if err != nil {
			fsw.Close()
		}
	}
	if err != nil {
		s.logger.Warn("file events unavailable, polling for commits", "interval", interval, "error", err)
	} else {
		f.fsw = fsw
	}

	f.wg.Add(1)
	go f.run()
	return f, nil
}

func (f *CommitFollower) run() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	// Nil channels block forever when file events are unavailable.
	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if f.fsw != nil {
		events = f.fsw.Events
		errs = f.fsw.Errors
	}

	for {
		select {
		case <-f.done:
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !isDatabaseWrite(ev) {
				continue
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			f.logger.Warn("database file watch error", "error", err)
			continue

		case <-ticker.C:
		}

		f.check()
	}
}

// check publishes once if data_version moved since the last check.
func (f *CommitFollower) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	v, err := db.DataVersion(ctx, f.conn)
	if err != nil {
		f.logger.Debug("commit check failed", "error", err)
		return
	}
	if v == f.last {
		return
	}
	f.last = v
	f.hub.Publish()
}

// isDatabaseWrite reports whether ev touched the database or its WAL.
func isDatabaseWrite(ev fsnotify.Event) bool {
	switch filepath.Base(ev.Name) {
	case db.FileName, db.FileName + "-wal":
	default:
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

// Close stops the follower and releases its connection. Safe to call more
// than once.
func (f *CommitFollower) Close() error {
	var err error
	f.stopOnce.Do(func() {
		close(f.done)
		if f.fsw != nil {
			if cerr := f.fsw.Close(); cerr != nil {
				err = fmt.Errorf("failed to close watcher: %w", cerr)
			}
		}
		f.wg.Wait()
		f.conn.Close()
		if cerr := f.sqlDB.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
