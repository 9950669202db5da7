package web

import (
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/config"
	"github.com/catdex/catdex/internal/errors"
	"github.com/catdex/catdex/internal/outcome"
	"github.com/catdex/catdex/internal/repository"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	repo     *repository.Repository
	cfg      *config.Config
	renderer *Renderer
	logger   *slog.Logger

	// liveClients counts open /ws connections.
	liveClients atomic.Int64
}

func newHandlers(repo *repository.Repository, cfg *config.Config, opts Options) *Handlers {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic("template sub-FS: " + err.Error())
	}
	return &Handlers{
		repo:     repo,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, opts.Version, opts.Logger),
		logger:   opts.Logger,
	}
}

// breedsJSON is the JSON shape of list responses and live snapshots.
type breedsJSON struct {
	Breeds []breed.Breed `json:"breeds"`
	Count  int           `json:"count"`
}

func newBreedsJSON(b []breed.Breed) breedsJSON {
	if b == nil {
		b = []breed.Breed{}
	}
	return breedsJSON{Breeds: b, Count: len(b)}
}

// HandleList handles GET /breeds, optionally filtered by ?q=. The unfiltered
// view follows the offline-first stream, so an empty cache triggers one
// fetch. Searches read the local store only.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	var (
		result []breed.Breed
		err    error
	)
	if query == "" {
		result, err = h.loadBreeds(r, false)
	} else {
		result, err = h.repo.Search(r.Context(), query)
	}
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, newBreedsJSON(result))
		return
	}

	view := "all"
	if query != "" {
		view = "search"
	}
	data := ListPageData{
		PageData: PageData{
			Title:   "Breeds",
			Version: h.renderer.version,
			Nav:     "breeds",
		},
		Breeds: result,
		Query:  query,
		View:   view,
	}
	h.fillStatus(r, &data)
	h.renderer.renderPage(w, r, "list", data)
}

// HandleFavorites handles GET /favorites.
func (h *Handlers) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	result, err := h.repo.Favorites(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, newBreedsJSON(result))
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "Favorites",
			Version: h.renderer.version,
			Nav:     "favorites",
		},
		Breeds: result,
		View:   "favorites",
	})
}

// HandleDetail handles GET /breeds/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("breed id is required"))
		return
	}

	b, err := h.repo.FindBreed(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, b)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   b.Name,
			Version: h.renderer.version,
			Nav:     "breeds",
		},
		Breed:           b,
		DescriptionHTML: renderMarkdown(b.Description),
	})
}

// HandleToggleFavorite handles POST /breeds/{id}/favorite.
func (h *Handlers) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("breed id is required"))
		return
	}

	if err := failureErr(h.repo.ToggleFavorite(r.Context(), id)); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	b, err := h.repo.FindBreed(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, b)
		return
	}

	http.Redirect(w, r, backTo(r, "/breeds/"+url.PathEscape(id)), http.StatusSeeOther)
}

// HandleRefresh handles POST /breeds/refresh: runs the offline-first stream
// with refresh forced and answers with the last catalogue emitted.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	latest, err := h.loadBreeds(r, true)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/breeds")
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, newBreedsJSON(latest))
		return
	}
	http.Redirect(w, r, "/breeds", http.StatusSeeOther)
}

// HandleHealth reports liveness and cache size.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st, err := h.repo.Status(r.Context(), 1)
	if err != nil {
		renderJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "error",
		})
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"cached":       st.Cached,
		"live_clients": h.liveClients.Load(),
	})
}

func (h *Handlers) fillStatus(r *http.Request, data *ListPageData) {
	st, err := h.repo.Status(r.Context(), 1)
	if err != nil {
		h.logger.Warn("load status", "error", err)
		return
	}
	data.Cached = st.Cached
	if len(st.Runs) > 0 {
		data.LastRun = &st.Runs[0]
	}
}

// loadBreeds drains GetAllBreeds and returns its last snapshot. A failure
// wins over earlier snapshots.
func (h *Handlers) loadBreeds(r *http.Request, refresh bool) ([]breed.Breed, error) {
	var (
		latest []breed.Breed
		got    bool
		fail   error
	)
	for o := range h.repo.GetAllBreeds(r.Context(), refresh) {
		if err := failureErr(o); err != nil {
			fail = err
			continue
		}
		latest, _ = o.Unwrap()
		got = true
	}
	if fail != nil {
		return nil, fail
	}
	if !got {
		return nil, errors.NewCanceled(r.Context().Err())
	}
	return latest, nil
}

// failureErr returns nil for a success and an AppError carrying the
// outcome's message otherwise.
func failureErr[T any](o outcome.Outcome[T]) error {
	var err error
	o.Match(
		func(T) {},
		func(f *outcome.Failure) {
			err = errors.WithMessage(f.Cause, f.Message)
		},
	)
	return err
}

// backTo returns the form's "next" path when it is a local path, else def.
func backTo(r *http.Request, def string) string {
	next := r.FormValue("next")
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return def
}
