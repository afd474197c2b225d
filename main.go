package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/msomdec/flashdeck/internal/config"
	"github.com/msomdec/flashdeck/internal/deck"
	"github.com/msomdec/flashdeck/internal/domain"
	"github.com/msomdec/flashdeck/internal/handler"
	"github.com/msomdec/flashdeck/internal/logging"
	"github.com/msomdec/flashdeck/internal/repository/disk"
	"github.com/msomdec/flashdeck/internal/repository/sqlite"
	"github.com/msomdec/flashdeck/internal/service"
	flag "github.com/spf13/pflag"
)

const usage = `usage: flashdeck [command] [flags]

commands:
  serve              run the web server (default)
  init-db            drop and recreate the database schema
  import <deck.yaml> create the cards of a YAML deck
  export             write cards as a YAML deck

run "flashdeck <command> --help" for the flags of a command.
`

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var run func(args []string) error
	switch cmd {
	case "serve":
		run = serve
	case "init-db":
		run = initDB
	case "import":
		run = importDeck
	case "export":
		run = exportDeck
	case "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err := run(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

// app holds what every command opens from the configuration.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	db     *sqlite.DB
	images *service.ImageFiles

	logCloser io.Closer
}

// setup loads the configuration and opens the logger and the migrated
// database. Text logs go to logOut, or stdout when it is nil.
func setup(loader *config.Loader, logOut io.Writer) (*app, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Stdout: logOut})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		closer.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied", "path", cfg.DatabasePath)

	var files domain.FileStore
	switch cfg.ImageBackend {
	case config.BackendSQLite:
		files = db.FileStore()
	default:
		store, err := disk.NewFileStore(cfg.ImageDir)
		if err != nil {
			db.Close()
			closer.Close()
			return nil, fmt.Errorf("open image directory: %w", err)
		}
		files = store
	}
	logger.Info("image storage ready", "backend", cfg.ImageBackend)

	return &app{
		cfg:       cfg,
		log:       logger,
		db:        db,
		images:    service.NewImageFiles(files, logger),
		logCloser: closer,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Error("close database", "error", err)
	}
	a.logCloser.Close()
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	loader := config.NewLoader(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := setup(loader, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.ResolveSecret(); err != nil {
		return err
	}
	if a.cfg.Env != config.EnvProduction && !a.cfg.CookieSecure {
		a.log.Warn("cookies are sent without the Secure flag")
	}

	csrf, err := service.NewCSRFService(a.cfg.SecretKey)
	if err != nil {
		return fmt.Errorf("create csrf service: %w", err)
	}
	cards := service.NewFlashcardService(a.db, a.images, a.log)
	limiter := service.NewWriteLimiter(60, 20)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, a.db.SqlDB, cards, a.images, csrf, limiter, handler.Options{
		CookieSecure: a.cfg.CookieSecure,
		CORSOrigins:  a.cfg.CORSOrigins,
		Logger:       a.log,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           handler.SecurityHeaders(handler.RequestLogger(a.log, mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go limiter.Run(ctx, 5*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", "addr", srv.Addr, "env", a.cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	a.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}

func initDB(args []string) error {
	fs := flag.NewFlagSet("init-db", flag.ContinueOnError)
	loader := config.NewLoader(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := setup(loader, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.db.Reset(context.Background()); err != nil {
		return err
	}
	a.log.Info("database initialized", "path", a.cfg.DatabasePath)
	return nil
}

func importDeck(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	loader := config.NewLoader(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("import needs exactly one deck file")
	}
	path := fs.Arg(0)

	a, err := setup(loader, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := deck.LoadFile(path)
	if err != nil {
		return err
	}
	cards := service.NewFlashcardService(a.db, a.images, a.log)
	n, err := deck.Import(context.Background(), cards, d, filepath.Dir(path))
	a.log.Info("deck imported", "file", path, "cards", n)
	return err
}

func exportDeck(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	category := fs.String("category", "", "export only this category")
	out := fs.StringP("output", "o", "", "write the deck to this file instead of stdout")
	loader := config.NewLoader(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	// Keep stdout clean for the deck.
	var logOut io.Writer
	if *out == "" {
		logOut = os.Stderr
	}
	a, err := setup(loader, logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	cards := service.NewFlashcardService(a.db, a.images, a.log)
	d, err := deck.Export(context.Background(), cards, a.images, *category)
	if err != nil {
		return err
	}

	if *out == "" {
		return d.Write(os.Stdout)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.log.Info("deck exported", "file", *out, "cards", len(d.Cards))
	return nil
}
