// Package store is the local breed store: SQLite persistence plus live
// queries that re-emit after every committed write.
package store

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/db"
	"github.com/catdex/catdex/internal/errors"
	"github.com/catdex/catdex/internal/live"
	"github.com/catdex/catdex/internal/logging"
)

// SQLiteStore implements the breed store over a *sql.DB.
type SQLiteStore struct {
	db     *sql.DB
	hub    *live.Hub
	logger *slog.Logger
}

// New wraps an initialized database. A nil logger discards.
func New(database *sql.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SQLiteStore{
		db:     database,
		hub:    live.NewHub(),
		logger: logger,
	}
}

// Upsert inserts or replaces breeds by id in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, breeds []breed.Breed) error {
	if err := db.UpsertBreeds(ctx, s.db, breeds); err != nil {
		return err
	}
	if len(breeds) > 0 {
		s.hub.Publish()
	}
	return nil
}

// UpsertOne inserts or replaces a single breed.
func (s *SQLiteStore) UpsertOne(ctx context.Context, b breed.Breed) error {
	return s.Upsert(ctx, []breed.Breed{b})
}

// GetByID returns the breed with the given id, or nil if absent.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*breed.Breed, error) {
	b, err := db.GetBreedByID(ctx, s.db, id)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// List returns every breed ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]breed.Breed, error) {
	return db.ListBreeds(ctx, s.db)
}

// Search returns breeds whose name contains query (case-sensitive).
func (s *SQLiteStore) Search(ctx context.Context, query string) ([]breed.Breed, error) {
	return db.SearchBreeds(ctx, s.db, query)
}

// Favorites returns favorite breeds ordered by name.
func (s *SQLiteStore) Favorites(ctx context.Context) ([]breed.Breed, error) {
	return db.ListFavorites(ctx, s.db)
}

// SetFavorite sets the favorite flag. Returns NOT_FOUND for an unknown id.
func (s *SQLiteStore) SetFavorite(ctx context.Context, id string, favorite bool) error {
	if err := db.SetFavorite(ctx, s.db, id, favorite); err != nil {
		return err
	}
	s.hub.Publish()
	return nil
}

// Count returns the number of cached breeds.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	return db.CountBreeds(ctx, s.db)
}

// Clear removes every breed.
func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	n, err := db.ClearBreeds(ctx, s.db)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.hub.Publish()
	}
	return n, nil
}

// RecordRun stores a refresh attempt.
func (s *SQLiteStore) RecordRun(ctx context.Context, run db.SyncRun) error {
	return db.InsertSyncRun(ctx, s.db, run)
}

// Runs returns recent refresh attempts, newest first.
func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]db.SyncRun, error) {
	return db.ListSyncRuns(ctx, s.db, limit)
}

// WatchAll is a live List.
func (s *SQLiteStore) WatchAll(ctx context.Context) *live.Query[[]breed.Breed] {
	return live.Watch(ctx, s.hub, s.logger, "all", s.List)
}

// WatchByID is a live GetByID. The value is nil while the id is absent.
func (s *SQLiteStore) WatchByID(ctx context.Context, id string) *live.Query[*breed.Breed] {
	return live.Watch(ctx, s.hub, s.logger, "by_id", func(ctx context.Context) (*breed.Breed, error) {
		return s.GetByID(ctx, id)
	})
}

// WatchSearch is a live Search.
func (s *SQLiteStore) WatchSearch(ctx context.Context, query string) *live.Query[[]breed.Breed] {
	return live.Watch(ctx, s.hub, s.logger, "search", func(ctx context.Context) ([]breed.Breed, error) {
		return s.Search(ctx, query)
	})
}

// WatchFavorites is a live Favorites.
func (s *SQLiteStore) WatchFavorites(ctx context.Context) *live.Query[[]breed.Breed] {
	return live.Watch(ctx, s.hub, s.logger, "favorites", s.Favorites)
}
