package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/errors"
	"github.com/catdex/catdex/internal/live"
	"github.com/catdex/catdex/internal/outcome"
	"github.com/catdex/catdex/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// d may be nil when only help or version output is needed.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "catdex",
		Usage:   "Offline-first cat breed catalogue",
		Version: Version,
		Commands: []*cli.Command{
			breedsCmd(d),
			searchCmd(d),
			showCmd(d),
			favoriteCmd(d),
			favoritesCmd(d),
			watchCmd(d),
			statusCmd(d),
			clearCmd(d),
			serveCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// breedsOutput is the JSON shape of every list command.
type breedsOutput struct {
	Breeds []breed.Breed `json:"breeds"`
	Count  int           `json:"count"`
}

func newBreedsOutput(b []breed.Breed) breedsOutput {
	if b == nil {
		b = []breed.Breed{}
	}
	return breedsOutput{Breeds: b, Count: len(b)}
}

// breedsCmd prints the cached catalogue, then the refreshed one when a
// refresh runs. Each emission is one JSON document.
func breedsCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "breeds",
		Usage: "List breeds (cache first, then TheCatAPI when needed)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "refresh", Aliases: []string{"r"}, Usage: "Refresh from TheCatAPI even when the cache is populated"},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var fail error
			for o := range d.repo.GetAllBreeds(ctx, c.Bool("refresh")) {
				o.Match(
					func(b []breed.Breed) {
						if err := outputJSON(c.App.Writer, newBreedsOutput(b)); err != nil && fail == nil {
							fail = errors.NewInternal(err)
						}
					},
					func(f *outcome.Failure) {
						fail = errors.WithMessage(f.Cause, f.Message)
					},
				)
			}
			if fail != nil {
				return outputError(fail)
			}
			if ctx.Err() != nil {
				return outputError(errors.NewCanceled(ctx.Err()))
			}
			return nil
		},
	}
}

// searchCmd creates the search command.
func searchCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search cached breeds by name (case-sensitive substring)",
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			result, err := d.repo.Search(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, newBreedsOutput(result))
		},
	}
}

// showCmd prints one cached breed, or with --remote the breed attached to a
// TheCatAPI image. The remote form never touches the cache.
func showCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one cached breed",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "remote", Usage: "Treat <id> as a TheCatAPI image id and fetch it live"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("remote") {
				return showRemote(c, d)
			}
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}
			b, err := d.repo.FindBreed(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, b)
		},
	}
}

func showRemote(c *cli.Context, d *deps) error {
	if d.images == nil {
		return outputError(errors.NewInternal(fmt.Errorf("remote lookups are not configured")))
	}
	img, err := d.images.GetImage(c.Context, c.Args().First())
	if err != nil {
		return outputError(err)
	}
	return outputJSON(c.App.Writer, breed.FromImage(*img))
}

// favoriteCmd toggles a breed's favorite flag and prints the updated breed.
func favoriteCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "favorite",
		Usage:     "Toggle the favorite flag of a cached breed",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}

			var fail error
			d.repo.ToggleFavorite(c.Context, id).Match(
				func(struct{}) {},
				func(f *outcome.Failure) { fail = errors.WithMessage(f.Cause, f.Message) },
			)
			if fail != nil {
				return outputError(fail)
			}

			b, err := d.repo.FindBreed(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, b)
		},
	}
}

// favoritesCmd creates the favorites command.
func favoritesCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "favorites",
		Usage: "List favorite breeds",
		Action: func(c *cli.Context) error {
			result, err := d.repo.Favorites(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, newBreedsOutput(result))
		},
	}
}

// watchCmd follows a live query and prints a snapshot after every store
// change until interrupted.
func watchCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print a live view of the cache on every change",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "favorites", Aliases: []string{"f"}, Usage: "Watch favorites only"},
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Watch breeds whose name contains this text"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Stop after this many snapshots (0 = until interrupted)"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("favorites") && c.IsSet("search") {
				return outputError(errors.NewInvalidRequest("--favorites and --search are mutually exclusive"))
			}
			limit := c.Int("limit")
			if limit < 0 {
				return outputError(errors.NewInvalidRequest("limit must be non-negative"))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var q *live.Query[[]breed.Breed]
			switch {
			case c.Bool("favorites"):
				q = d.repo.GetFavorites(ctx)
			case c.IsSet("search"):
				q = d.repo.SearchBreeds(ctx, c.String("search"))
			default:
				q = d.repo.WatchBreeds(ctx)
			}
			defer q.Close()

			return printSnapshots(ctx, c.App.Writer, q, limit)
		},
	}
}

func printSnapshots(ctx context.Context, w io.Writer, q *live.Query[[]breed.Breed], limit int) error {
	seen := 0
	for snapshot := range q.C {
		if err := outputJSON(w, newBreedsOutput(snapshot)); err != nil {
			return outputError(errors.NewInternal(err))
		}
		seen++
		if limit > 0 && seen >= limit {
			return nil
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return outputError(errors.NewInternal(fmt.Errorf("live query stopped")))
}

// statusCmd creates the status command.
func statusCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show cache size and recent refresh attempts",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 10, Usage: "Maximum refresh attempts to show"},
		},
		Action: func(c *cli.Context) error {
			limit := c.Int("limit")
			if limit < 0 {
				return outputError(errors.NewInvalidRequest("limit must be non-negative"))
			}
			st, err := d.repo.Status(c.Context, limit)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, st)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every cached breed, favorites included",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "confirm", Usage: "Required; clearing cannot be undone"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("confirm") {
				return outputError(errors.NewInvalidRequest("clear removes favorites too; pass --confirm"))
			}
			n, err := d.repo.Clear(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, map[string]int{"removed": n})
		},
	}
}

// serveCmd starts the web UI.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default from config)"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(d.repo, d.cfg, web.Options{
				Version: Version,
				Bind:    c.String("bind"),
				Port:    c.Int("port"),
				Logger:  d.logger,
			})
			if err := web.Run(srv, d.logger); err != nil && err != http.ErrServerClosed {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

func requireID(c *cli.Context) (string, error) {
	id := c.Args().First()
	if id == "" {
		return "", errors.NewInvalidRequest("breed id is required")
	}
	return id, nil
}

// outputJSON marshals v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	appErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), 1)
}
