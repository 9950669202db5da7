// Package repository implements the offline-first breed catalogue: the
// local store is the source of truth, the remote source only refreshes it.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/db"
	"github.com/catdex/catdex/internal/errors"
	"github.com/catdex/catdex/internal/live"
	"github.com/catdex/catdex/internal/logging"
	"github.com/catdex/catdex/internal/metrics"
	"github.com/catdex/catdex/internal/outcome"
	"github.com/catdex/catdex/internal/remote"
)

// DefaultPageSize is the number of records requested per refresh.
const DefaultPageSize = 100

// Store is the local breed store.
type Store interface {
	List(ctx context.Context) ([]breed.Breed, error)
	Search(ctx context.Context, query string) ([]breed.Breed, error)
	Favorites(ctx context.Context) ([]breed.Breed, error)
	GetByID(ctx context.Context, id string) (*breed.Breed, error)
	Upsert(ctx context.Context, breeds []breed.Breed) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) (int, error)

	WatchAll(ctx context.Context) *live.Query[[]breed.Breed]
	WatchByID(ctx context.Context, id string) *live.Query[*breed.Breed]
	WatchSearch(ctx context.Context, query string) *live.Query[[]breed.Breed]
	WatchFavorites(ctx context.Context) *live.Query[[]breed.Breed]
}

// Source is the remote breed image source.
type Source interface {
	SearchImages(ctx context.Context, q remote.Query) ([]breed.RawImage, error)
}

// RunLog records refresh attempts.
type RunLog interface {
	RecordRun(ctx context.Context, run db.SyncRun) error
	Runs(ctx context.Context, limit int) ([]db.SyncRun, error)
}

// Repository coordinates the store and the remote source.
type Repository struct {
	store    Store
	source   Source
	runs     RunLog
	logger   *slog.Logger
	metrics  *metrics.Metrics
	pageSize int
	now      func() time.Time

	// mu serializes favorite-preserving writes: a refresh's read-merge-write
	// and a toggle's read-flip-write.
	mu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithPageSize sets the refresh page size. Non-positive values are ignored.
func WithPageSize(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithRunLog enables refresh history.
func WithRunLog(rl RunLog) Option {
	return func(r *Repository) { r.runs = rl }
}

// New creates a Repository.
func New(store Store, source Source, opts ...Option) *Repository {
	r := &Repository{
		store:    store,
		source:   source,
		logger:   logging.Discard(),
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetAllBreeds streams the catalogue. A non-empty cache is emitted first.
// The remote source is then queried when refresh is set or the cache is
// empty; on success the merged, re-read catalogue is emitted. A refresh
// failure is emitted only when there was no cache to show.
//
// The channel is closed once the refresh attempt completes or is skipped.
// Cancel ctx to abandon the stream; no store write happens after that.
func (r *Repository) GetAllBreeds(ctx context.Context, refresh bool) <-chan outcome.Outcome[[]breed.Breed] {
	out := make(chan outcome.Outcome[[]breed.Breed])

	go func() {
		defer close(out)
		defer func() {
			if p := recover(); p != nil {
				err := errors.NewInternal(fmt.Errorf("panic: %v", p))
				r.logger.Error("get all breeds panicked", "error", err)
				r.emit(ctx, out, unexpected[[]breed.Breed](err))
			}
		}()

		if ctx.Err() != nil {
			return
		}

		cached, err := r.store.List(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("read cached breeds", "error", err)
			r.emit(ctx, out, unexpected[[]breed.Breed](err))
			return
		}

		r.metrics.SetCached(len(cached))

		hasCache := len(cached) > 0
		if hasCache {
			if !r.emit(ctx, out, outcome.Success(cached)) {
				return
			}
		}

		if !refresh && hasCache {
			return
		}
		r.refresh(ctx, out, hasCache)
	}()

	return out
}

// refresh runs one fetch-merge-write attempt and emits its result.
func (r *Repository) refresh(ctx context.Context, out chan<- outcome.Outcome[[]breed.Breed], hasCache bool) {
	if ctx.Err() != nil {
		return
	}

	run := db.SyncRun{ID: ulid.Make().String(), StartedAt: r.now().Unix()}
	start := time.Now()
	log := r.logger.With("run_id", run.ID)
	log.Debug("refresh started", "page_size", r.pageSize, "has_cache", hasCache)

	fresh, fetched, err := r.fetchAndStore(ctx)
	run.Fetched = fetched

	switch {
	case ctx.Err() != nil:
		run.Status = metrics.ResultCanceled
		log.Info("refresh canceled")
	case err == nil:
		run.Status = metrics.ResultSuccess
		r.metrics.SetCached(len(fresh))
		log.Info("refresh complete", "fetched", fetched, "cached", len(fresh))
		r.emit(ctx, out, outcome.Success(fresh))
	case hasCache:
		run.Status = metrics.ResultSuppressed
		run.Error = err.Error()
		log.Warn("refresh failed, serving cache", "error", err)
	default:
		run.Status = metrics.ResultFailed
		run.Error = err.Error()
		log.Error("refresh failed", "error", err)
		r.emit(ctx, out, outcome.Errorf[[]breed.Breed](err, "Failed to load cat breeds: %s", causeMessage(err)))
	}

	r.metrics.ObserveRefresh(run.Status, start)
	r.recordRun(ctx, log, run)
}

// fetchAndStore fetches one page, carries stored favorite flags onto the
// fetched records, writes them and re-reads the store.
func (r *Repository) fetchAndStore(ctx context.Context) ([]breed.Breed, int, error) {
	images, err := r.source.SearchImages(ctx, remote.DefaultQuery(r.pageSize))
	if err != nil {
		return nil, 0, err
	}
	mapped := breed.FromImages(images)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range mapped {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		existing, err := r.store.GetByID(ctx, mapped[i].ID)
		if err != nil {
			return nil, 0, err
		}
		if existing != nil {
			mapped[i].IsFavorite = existing.IsFavorite
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.store.Upsert(ctx, mapped); err != nil {
		return nil, 0, err
	}

	fresh, err := r.store.List(ctx)
	if err != nil {
		return nil, len(mapped), err
	}
	return fresh, len(mapped), nil
}

func (r *Repository) recordRun(ctx context.Context, log *slog.Logger, run db.SyncRun) {
	if r.runs == nil {
		return
	}
	run.FinishedAt = r.now().Unix()

	// History is kept even when the caller walked away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.runs.RecordRun(ctx, run); err != nil {
		log.Warn("record sync run", "error", err)
	}
}

// emit sends o unless ctx is done. It reports whether o was delivered.
func (r *Repository) emit(ctx context.Context, out chan<- outcome.Outcome[[]breed.Breed], o outcome.Outcome[[]breed.Breed]) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- o:
		r.metrics.IncrementEmission(o.Kind().String())
		return true
	case <-ctx.Done():
		return false
	}
}

// ToggleFavorite flips the favorite flag of one breed.
func (r *Repository) ToggleFavorite(ctx context.Context, id string) outcome.Outcome[struct{}] {
	res := r.toggle(ctx, id)
	if res.IsSuccess() {
		r.metrics.IncrementToggle(metrics.ResultSuccess)
	} else {
		r.metrics.IncrementToggle(metrics.ResultFailed)
	}
	return res
}

func (r *Repository) toggle(ctx context.Context, id string) outcome.Outcome[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.store.GetByID(ctx, id)
	if err != nil {
		return outcome.Errorf[struct{}](err, "Failed to update favorite: %s", causeMessage(err))
	}
	if current == nil {
		return notFound[struct{}](id)
	}

	if err := r.store.SetFavorite(ctx, id, !current.IsFavorite); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return notFound[struct{}](id)
		}
		return outcome.Errorf[struct{}](err, "Failed to update favorite: %s", causeMessage(err))
	}

	r.logger.Debug("favorite toggled", "id", id, "favorite", !current.IsFavorite)
	return outcome.Success(struct{}{})
}

// SearchBreeds is a live list of breeds whose name contains query,
// case-sensitively, ordered by name. An empty query matches everything.
func (r *Repository) SearchBreeds(ctx context.Context, query string) *live.Query[[]breed.Breed] {
	return r.store.WatchSearch(ctx, query)
}

// GetBreedByID is a live lookup; the value is nil while the id is absent.
func (r *Repository) GetBreedByID(ctx context.Context, id string) *live.Query[*breed.Breed] {
	return r.store.WatchByID(ctx, id)
}

// GetFavorites is a live list of favorite breeds ordered by name.
func (r *Repository) GetFavorites(ctx context.Context) *live.Query[[]breed.Breed] {
	return r.store.WatchFavorites(ctx)
}

// WatchBreeds is a live list of every cached breed. It never contacts the
// remote source.
func (r *Repository) WatchBreeds(ctx context.Context) *live.Query[[]breed.Breed] {
	return r.store.WatchAll(ctx)
}

// FindBreed returns the current record for id. Returns NOT_FOUND if absent.
func (r *Repository) FindBreed(ctx context.Context, id string) (*breed.Breed, error) {
	b, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errors.NewNotFound(id)
	}
	return b, nil
}

// Search returns the current search result.
func (r *Repository) Search(ctx context.Context, query string) ([]breed.Breed, error) {
	return r.store.Search(ctx, query)
}

// Favorites returns the current favorites.
func (r *Repository) Favorites(ctx context.Context) ([]breed.Breed, error) {
	return r.store.Favorites(ctx)
}

// Status summarizes the cache and its refresh history.
type Status struct {
	Cached int          `json:"cached"`
	Runs   []db.SyncRun `json:"runs"`
}

// Status returns the cached breed count and up to limit recent refresh
// attempts, newest first.
func (r *Repository) Status(ctx context.Context, limit int) (*Status, error) {
	n, err := r.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	r.metrics.SetCached(n)
	st := &Status{Cached: n, Runs: []db.SyncRun{}}
	if r.runs != nil {
		runs, err := r.runs.Runs(ctx, limit)
		if err != nil {
			return nil, err
		}
		st.Runs = runs
	}
	return st, nil
}

// Clear removes every cached breed, favorites included.
func (r *Repository) Clear(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	r.metrics.SetCached(0)
	r.logger.Info("cache cleared", "removed", n)
	return n, nil
}

func unexpected[T any](err error) outcome.Outcome[T] {
	return outcome.Errorf[T](err, "Unexpected error: %s", causeMessage(err))
}

func notFound[T any](id string) outcome.Outcome[T] {
	nf := errors.NewNotFound(id)
	return outcome.Error[T](nf, nf.Message)
}

// causeMessage is the human-readable part of err, without the error code.
func causeMessage(err error) string {
	return errors.As(err).Message
}
