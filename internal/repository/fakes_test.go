package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/db"
	"github.com/catdex/catdex/internal/remote"
	"github.com/catdex/catdex/internal/store"
)

// fakeSource serves canned images and counts calls.
type fakeSource struct {
	mu     sync.Mutex
	images []breed.RawImage
	err    error
	last   remote.Query

	// When set, SearchImages signals started and then waits for release or ctx.
	started chan struct{}
	release chan struct{}

	calls atomic.Int64
}

func (f *fakeSource) SearchImages(ctx context.Context, q remote.Query) ([]breed.RawImage, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = q
	images, err := f.images, f.err
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (f *fakeSource) lastQuery() remote.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// countingStore wraps the SQLite store, counting writes and injecting errors.
type countingStore struct {
	*store.SQLiteStore

	upserts      atomic.Int64
	setFavorites atomic.Int64
	lookups      atomic.Int64

	listErr   error
	getErr    error
	upsertErr error
}

func (s *countingStore) List(ctx context.Context) ([]breed.Breed, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.SQLiteStore.List(ctx)
}

func (s *countingStore) GetByID(ctx context.Context, id string) (*breed.Breed, error) {
	s.lookups.Add(1)
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.SQLiteStore.GetByID(ctx, id)
}

func (s *countingStore) Upsert(ctx context.Context, breeds []breed.Breed) error {
	s.upserts.Add(1)
	if s.upsertErr != nil {
		return s.upsertErr
	}
	return s.SQLiteStore.Upsert(ctx, breeds)
}

func (s *countingStore) SetFavorite(ctx context.Context, id string, favorite bool) error {
	s.setFavorites.Add(1)
	return s.SQLiteStore.SetFavorite(ctx, id, favorite)
}

func newCountingStore(t *testing.T) *countingStore {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return &countingStore{SQLiteStore: store.New(database, nil)}
}

func strPtr(s string) *string { return &s }

func rawImage(imageID, breedID, name string) breed.RawImage {
	return breed.RawImage{
		ID:  imageID,
		URL: "https://cdn2.thecatapi.com/images/" + imageID + ".jpg",
		Breeds: []breed.RawBreed{{
			ID:          breedID,
			Name:        strPtr(name),
			Origin:      strPtr("Somewhere"),
			Temperament: strPtr("Calm"),
			Description: strPtr("A " + name + "."),
			LifeSpan:    strPtr("12 - 16"),
		}},
	}
}

func cachedBreed(id, name string, favorite bool) breed.Breed {
	return breed.Breed{
		ID:          id,
		Name:        name,
		Origin:      "Cache",
		Temperament: "Cached",
		Description: "From cache.",
		LifeSpan:    "1 - 2",
		ImageURL:    "https://example.test/" + id + ".jpg",
		IsFavorite:  favorite,
	}
}
