package remote

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catdex/catdex/internal/errors"
)

const searchPayload = `[
  {"id":"0XYvRd7oD","url":"https://cdn2.thecatapi.com/images/0XYvRd7oD.jpg","width":1204,"height":1445,
   "breeds":[{"id":"abys","name":"Abyssinian","origin":"Egypt","temperament":"Active, Energetic","description":"The Abyssinian is easy to care for.","life_span":"14 - 15"}]},
  {"id":"noBreed","url":"https://cdn2.thecatapi.com/images/noBreed.jpg","width":500,"height":400,"breeds":[]}
]`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", "secret", time.Second)
	require.NoError(t, err)
	return c
}

func TestQuery_Values(t *testing.T) {
	v := DefaultQuery(100).Values()
	assert.Equal(t, "100", v.Get("limit"))
	assert.Equal(t, "0", v.Get("page"))
	assert.Equal(t, "1", v.Get("has_breeds"))
	assert.Equal(t, "ASC", v.Get("order"))

	v = Query{Limit: 5, Page: 2, Order: OrderDesc}.Values()
	assert.Equal(t, "0", v.Get("has_breeds"))
	assert.Equal(t, "DESC", v.Get("order"))
	assert.Equal(t, "2", v.Get("page"))
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "not a url", "ftp://example.com"} {
		_, err := New(base, "", 0)
		assert.Error(t, err, "base %q", base)
	}
}

func TestSearchImages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/search", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "1", r.URL.Query().Get("has_breeds"))
		assert.Equal(t, "ASC", r.URL.Query().Get("order"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchPayload))
	})

	imgs, err := c.SearchImages(context.Background(), DefaultQuery(100))
	require.NoError(t, err)
	require.Len(t, imgs, 2)

	assert.Equal(t, "0XYvRd7oD", imgs[0].ID)
	require.Len(t, imgs[0].Breeds, 1)
	b := imgs[0].Breeds[0]
	assert.Equal(t, "abys", b.ID)
	require.NotNil(t, b.LifeSpan)
	assert.Equal(t, "14 - 15", *b.LifeSpan)
	assert.Empty(t, imgs[1].Breeds)
}

func TestSearchImages_NoAPIKeyHeaderWhenUnset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-Api-Key"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "", time.Second)
	require.NoError(t, err)
	imgs, err := c.SearchImages(context.Background(), DefaultQuery(1))
	require.NoError(t, err)
	assert.NotNil(t, imgs)
	assert.Empty(t, imgs)
}

func TestSearchImages_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.SearchImages(context.Background(), DefaultQuery(100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstream))

	var httpErr *HTTPError
	require.True(t, stderrors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, "rate limited", httpErr.Body)
}

func TestSearchImages_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"`))
	})

	_, err := c.SearchImages(context.Background(), DefaultQuery(100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstream))
}

func TestSearchImages_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.SearchImages(ctx, DefaultQuery(100))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestGetImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/0XYvRd7oD", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"0XYvRd7oD","url":"https://cdn2.thecatapi.com/images/0XYvRd7oD.jpg","width":1,"height":2,"breeds":[]}`))
	})

	img, err := c.GetImage(context.Background(), "0XYvRd7oD")
	require.NoError(t, err)
	assert.Equal(t, 2, img.Height)
}

func TestGetImage_EmptyID(t *testing.T) {
	c, err := New("https://api.thecatapi.com", "", 0)
	require.NoError(t, err)

	_, err = c.GetImage(context.Background(), " ")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
