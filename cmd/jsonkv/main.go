// Package main is the entry point for the jsonkv server.
//
// jsonkv serves a single JSON object stored in a file as a key-value HTTP API.
// Configuration is read from defaults, an optional YAML file (-config), a .env
// file, JSONKV_* environment variables and finally explicitly set CLI flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/maruel/jsonkv/internal/config"
	"github.com/maruel/jsonkv/internal/jsondb"
	"github.com/maruel/jsonkv/internal/server"
	"github.com/maruel/jsonkv/internal/server/ratelimit"
	"github.com/maruel/jsonkv/internal/storage"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "jsonkv: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	def := config.Default()
	version := flag.Bool("version", false, "Print version and exit")
	configPath := flag.String("config", "", "Optional YAML configuration file")
	httpAddr := flag.String("http", def.HTTP, "Address to listen on (e.g. :3000, localhost:3000)")
	storePath := flag.String("store", def.Store, "Path of the JSON file holding the data")
	logLevel := flag.String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")
	history := flag.Bool("history", def.History, "Commit every change of the store file to a git repository")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(newLogger(ll))

	cfg := def
	if *configPath != "" {
		if err := config.LoadFile(*configPath, &cfg); err != nil {
			return err
		}
	}
	dotenv, err := config.LoadDotEnv(".")
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(&cfg, dotenv, os.Environ()); err != nil {
		return err
	}

	// Explicitly set flags win over everything else.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http":
			cfg.HTTP = *httpAddr
		case "store":
			cfg.Store = *storePath
		case "log-level":
			cfg.LogLevel = *logLevel
		case "history":
			cfg.History = *history
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	ll.Set(level)

	doc, err := jsondb.NewDocument(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	var hist *storage.History
	if cfg.History {
		if hist, err = storage.OpenHistory(cfg.Store, "", ""); err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		commits, err := hist.Log(1)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}
		var head string
		if len(commits) != 0 {
			head = commits[0].Hash
		}
		slog.InfoContext(ctx, "History enabled", "dir", filepath.Dir(cfg.Store), "head", head)
	}
	store := storage.NewStore(doc, hist)

	limiters := ratelimit.NewLimiters(cfg.ReadRatePerMin, cfg.WriteRatePerMin)
	defer limiters.Close()

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	buildVersion, _, _, _ := getBuildInfo()
	httpServer := &http.Server{
		Addr:              cfg.HTTP,
		Handler:           server.NewRouter(store, &server.Config{MaxRequestBodyBytes: cfg.MaxBodyBytes}, limiters),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", cfg.HTTP, "store", store.Path(), "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// newLogger returns a tint logger writing to stderr. Colors are only used on
// a terminal and timestamps are dropped under systemd, which adds its own.
func newLogger(level slog.Leveler) *slog.Logger {
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			// Zero values add noise to the access log.
			switch t := a.Value.Any().(type) {
			case string:
				if t == "" {
					return slog.Attr{}
				}
			case bool:
				if !t {
					return slog.Attr{}
				}
			case time.Duration:
				if t == 0 {
					return slog.Attr{}
				}
			case nil:
				return slog.Attr{}
			}
			return a
		},
	}))
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("jsonkv %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchExecutable calls stop when the running binary is replaced, so a
// supervisor can restart the new build.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) || event.Has(fsnotify.Remove) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
