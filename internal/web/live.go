package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/live"
)

const liveWriteTimeout = 5 * time.Second

// LiveMessage is one snapshot pushed over /ws.
type LiveMessage struct {
	View      string        `json:"view"`
	Query     string        `json:"query,omitempty"`
	Breeds    []breed.Breed `json:"breeds"`
	Count     int           `json:"count"`
	Timestamp time.Time     `json:"timestamp"`
}

// HandleLive handles GET /ws?view=all|favorites|search&q=. It pushes the
// current snapshot of the chosen live query and a new one after every store
// change, until the client goes away.
func (h *Handlers) HandleLive(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "all"
	}
	query := r.URL.Query().Get("q")
	if view != "all" && view != "favorites" && view != "search" {
		http.Error(w, "view must be all, favorites or search", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Client messages are ignored; ctx ends when the client disconnects.
	ctx := conn.CloseRead(r.Context())

	n := h.liveClients.Add(1)
	defer h.liveClients.Add(-1)
	h.logger.Debug("live client connected", "view", view, "clients", n)

	q := h.watch(ctx, view, query)
	defer q.Close()

	for snapshot := range q.C {
		if snapshot == nil {
			snapshot = []breed.Breed{}
		}
		data, err := json.Marshal(LiveMessage{
			View:      view,
			Query:     query,
			Breeds:    snapshot,
			Count:     len(snapshot),
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			h.logger.Error("marshal live message", "error", err)
			return
		}

		wctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
		err = conn.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.logger.Debug("live client write failed", "error", err)
			return
		}
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handlers) watch(ctx context.Context, view, query string) *live.Query[[]breed.Breed] {
	switch view {
	case "favorites":
		return h.repo.GetFavorites(ctx)
	case "search":
		return h.repo.SearchBreeds(ctx, query)
	default:
		return h.repo.WatchBreeds(ctx)
	}
}
