package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/config"
	"github.com/catdex/catdex/internal/db"
	"github.com/catdex/catdex/internal/logging"
	"github.com/catdex/catdex/internal/mcp"
	"github.com/catdex/catdex/internal/metrics"
	"github.com/catdex/catdex/internal/remote"
	"github.com/catdex/catdex/internal/repository"
	"github.com/catdex/catdex/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"breeds": true, "search": true, "show": true,
	"favorite": true, "favorites": true, "watch": true,
	"status": true, "clear": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
            _      _
   ___ __ _| |_ __| | _____  __
  / __/ _' | __/ _' |/ _ \ \/ /
 | (_| (_| | || (_| |  __/>  <
  \___\__,_|\__\__,_|\___/_/\_\

  Offline-first cat breed catalogue

  Usage: catdex <command> [options]
         catdex --help

  MCP server mode requires piped input.`)
}

// imageLookup fetches a single image record from TheCatAPI.
type imageLookup interface {
	GetImage(ctx context.Context, id string) (*breed.RawImage, error)
}

// deps is everything a command needs, wired once per process.
type deps struct {
	cfg    *config.Config
	logger *slog.Logger
	repo   *repository.Repository
	images imageLookup
}

// wire builds the dependency graph rooted at baseDir. The returned closer
// stops the commit follower and releases the database and the log file.
func wire(baseDir string, reg prometheus.Registerer) (*deps, io.Closer, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser := logging.New(cfg, baseDir)

	database, err := db.Init(baseDir)
	if err != nil {
		logCloser.Close()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	client, err := remote.New(cfg.APIBaseURL, cfg.APIKey, cfg.RequestTimeout())
	if err != nil {
		database.Close()
		logCloser.Close()
		return nil, nil, fmt.Errorf("invalid api_base_url: %w", err)
	}

	st := store.New(database, logger)
	repo := repository.New(st, client,
		repository.WithLogger(logger),
		repository.WithMetrics(metrics.New(reg)),
		repository.WithPageSize(cfg.PageSize),
		repository.WithRunLog(st),
	)

	follower, err := st.FollowCommits(baseDir, store.DefaultCommitPoll)
	if err != nil {
		database.Close()
		logCloser.Close()
		return nil, nil, fmt.Errorf("failed to follow database commits: %w", err)
	}

	d := &deps{cfg: cfg, logger: logger, repo: repo, images: client}
	return d, closers{follower, database, logCloser}, nil
}

type closers []io.Closer

func (cs closers) Close() error {
	var first error
	for _, c := range cs {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".catdex")

	d, closer, err := wire(baseDir, prometheus.DefaultRegisterer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	code := run(d)
	closer.Close()
	os.Exit(code)
}

func run(d *deps) int {
	if isCLIMode() {
		app := newCLIApp(d)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'catdex --help' for usage.\n")
		return 1
	}

	if err := mcp.Run(d.repo, d.cfg, d.logger, Version); err != nil {
		d.logger.Error("mcp server stopped", "error", err)
		return 1
	}
	return 0
}
