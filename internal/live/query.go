package live

import (
	"context"
	"log/slog"

	"github.com/catdex/catdex/internal/logging"
)

// Fetch reads the current value of a query.
type Fetch[T any] func(ctx context.Context) (T, error)

// Query is a running live query. C yields the current value once, then a
// fresh value after every change published on the hub. C is closed when the
// query stops.
type Query[T any] struct {
	C <-chan T

	cancel context.CancelFunc
	done   chan struct{}
}

// Watch starts a live query. Read errors are logged and the query waits for
// the next change instead of stopping. A nil logger discards.
func Watch[T any](ctx context.Context, hub *Hub, logger *slog.Logger, name string, fetch Fetch[T]) *Query[T] {
	if logger == nil {
		logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan T)
	q := &Query[T]{
		C:      out,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// Subscribe before the first read so no commit between the two is missed.
	changes, unsubscribe := hub.Subscribe()

	go func() {
		defer close(q.done)
		defer close(out)
		defer unsubscribe()

		for {
			v, err := fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("live query failed", "query", name, "error", err)
			} else {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-changes:
			case <-ctx.Done():
				return
			}
		}
	}()

	return q
}

// Close stops the query and waits for its goroutine to exit.
func (q *Query[T]) Close() {
	q.cancel()
	<-q.done
}

// Done is closed once the query has stopped.
func (q *Query[T]) Done() <-chan struct{} {
	return q.done
}

