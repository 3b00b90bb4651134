// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/clubqa/internal/api"
	"github.com/starford/clubqa/internal/identity"
	"github.com/starford/clubqa/internal/mcpserver"
	"github.com/starford/clubqa/internal/qna"
	"github.com/starford/clubqa/internal/sse"
	"github.com/starford/clubqa/internal/store"
	"github.com/starford/clubqa/internal/tagcatalog"
	"github.com/starford/clubqa/internal/views"
)

// components are the pieces every command shares.
type components struct {
	logger  *slog.Logger
	db      *store.DB
	catalog *tagcatalog.Catalog
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// open installs the JSON logger and opens the store and the tag catalog.
func (a *application) open() (*components, error) {
	cfg := a.config

	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	catalog, err := cfg.Catalog.Build()
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	return &components{logger: logger, db: db, catalog: catalog}, nil
}

func (a *application) serviceOptions(c *components) []qna.Option {
	return []qna.Option{
		qna.WithLogger(c.logger),
		qna.WithPageSizes(a.config.Search.DefaultPageSize, a.config.Search.MaxPageSize),
	}
}

func authenticator(cfg AuthConfig) api.Authenticator {
	if cfg.Mode == AuthModeJWT {
		return api.NewJWTAuth(cfg.JWTSecret)
	}
	return api.HeaderAuth{}
}

// Run starts the HTTP API with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	c, err := app.open()
	if err != nil {
		return err
	}
	defer c.db.Close()
	logger := c.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Bool("redis", cfg.Redis.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.SSE.BoardThrottle, cfg.SSE.Heartbeat)
	defer broker.Close()

	svcOpts := append(app.serviceOptions(c), qna.WithNotifier(func(e qna.Event) {
		broker.PublishBoardEvent(e.Kind, e.QuestionID, e.AnswerID)
	}))

	// Redis view counter; without it views go straight to SQLite.
	var (
		counter *views.Counter
		flusher *views.Flusher
	)
	if cfg.Redis.Enabled() {
		counter, err = views.NewCounter(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			logger.Warn("redis unavailable, counting views in sqlite", slog.String("error", err.Error()))
			counter = nil
		} else {
			defer counter.Close()
			svcOpts = append(svcOpts, qna.WithViewCounter(counter))
			flusher = views.NewFlusher(counter, c.db, cfg.Views.FlushInterval, logger)
		}
	}

	svc := qna.NewService(c.db, c.catalog, svcOpts...)
	apiRouter := api.NewRouter(svc, api.RouterConfig{
		TokenGate: cfg.Auth.AuthEnabled(),
		Token:     cfg.Auth.Token,
		Auth:      authenticator(cfg.Auth),
		Events:    broker,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"store unavailable"}`))
			return
		}
		// Views are best-effort, so a lost Redis only degrades.
		if counter != nil {
			if err := counter.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)
	workCtx, stopWork := context.WithCancel(gCtx)
	defer stopWork()

	if flusher != nil {
		g.Go(func() error {
			return flusher.Run(workCtx)
		})
	}

	// Forget idempotency keys and view batch ids older than the TTL.
	g.Go(func() error {
		sweepIdempotencyKeys(workCtx, c.db, cfg.Idempotency, logger)
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Ends open event streams so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		stopWork()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// retentionPruner is the store surface the sweeper needs.
type retentionPruner interface {
	PruneIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error)
	PruneViewBatches(ctx context.Context, cutoff time.Time) (int64, error)
}

// sweepIdempotencyKeys forgets idempotency keys and applied view batch ids
// older than the TTL.
func sweepIdempotencyKeys(ctx context.Context, db retentionPruner, cfg IdempotencyConfig, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-cfg.TTL)
			n, err := db.PruneIdempotencyKeys(ctx, cutoff)
			if err != nil {
				logger.Warn("idempotency sweep failed", slog.String("error", err.Error()))
			} else if n > 0 {
				logger.Debug("idempotency keys pruned", slog.Int64("count", n))
			}
			if _, err := db.PruneViewBatches(ctx, cutoff); err != nil {
				logger.Warn("view batch sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunMCP serves the read-only board tools over MCP stdio.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	c, err := app.open()
	if err != nil {
		return err
	}
	defer c.db.Close()

	svc := qna.NewService(c.db, c.catalog, app.serviceOptions(c)...)
	c.logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(svc, app.version).ServeStdio()
}

// RunImport loads every Markdown post under dir as a question. Posts without
// an author in their frontmatter are attributed to author.
func RunImport(ctx context.Context, dir, author string, opts ...Option) error {
	if author == "" {
		return fmt.Errorf("import: author is required")
	}
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.open()
	if err != nil {
		return err
	}
	defer c.db.Close()

	svc := qna.NewService(c.db, c.catalog, app.serviceOptions(c)...)
	report, err := svc.ImportPosts(ctx, os.DirFS(dir), identity.Principal{ID: author, Role: identity.RoleMember})
	if err != nil {
		return fmt.Errorf("import %s: %w", dir, err)
	}
	c.logger.Info("Import finished",
		slog.String("dir", dir),
		slog.Int("imported", report.Imported),
		slog.Int("failed", report.Failed))
	if report.Failed > 0 {
		return fmt.Errorf("import: %d of %d posts failed", report.Failed, report.Imported+report.Failed)
	}
	return nil
}
