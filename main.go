package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/urfave/cli/v3"

	"github.com/s1natex/zentask/internal/config"
	"github.com/s1natex/zentask/internal/middleware"
	"github.com/s1natex/zentask/internal/suggest"
	"github.com/s1natex/zentask/internal/tasks"
	"github.com/s1natex/zentask/internal/telemetry"
)

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		slog.Warn("dotenv_load_failed", slog.String("error", err.Error()))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "zentask",
		Usage: "Personal task manager with AI planning",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				Value:   config.DefaultPath,
				Sources: cli.EnvVars("ZENTASK_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newTasksCommand(),
		},
		DefaultCommand: "serve",
	}
}

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := newApp(ctx, cmd.String("config"), os.Stdout)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.serve(ctx)
		},
	}
}

// app bundles everything built from one config.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	controller *tasks.Controller
	closers    []func() error
}

func newApp(ctx context.Context, configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log, logOut)
	slog.SetDefault(logger) // for third-party packages that use slog

	a := &app{cfg: cfg, logger: logger}

	shutdown, err := telemetry.SetupTracing(ctx, telemetry.TracingOptions{
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdown(sctx)
	})

	store, closeStore, err := tasks.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	var gen suggest.Generator
	gemini, err := suggest.NewGemini(ctx, suggest.GeminiConfig{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		BaseURL: cfg.AI.BaseURL,
	})
	switch {
	case errors.Is(err, suggest.ErrDisabled):
		logger.Warn("ai_disabled", slog.String("reason", "no api key configured"))
	case err != nil:
		a.Close()
		return nil, err
	default:
		gen = gemini
		logger.Info("ai_enabled", slog.String("model", gemini.Model()))
	}

	a.controller = tasks.NewController(
		tasks.Instrument(store),
		suggest.NewClient(gen, logger),
		logger,
	)
	a.controller.Load(ctx)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close_failed", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}

func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           newRouter(a.controller, a.cfg, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server_listen", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.logger.Info("server_shutdown")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

// newRouter wires the health endpoint, metrics, task routes, and middleware stack
func newRouter(ctrl *tasks.Controller, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Trace-Id", "X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(logger))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
			"phase":  string(ctrl.Phase()),
		})
	})
	r.Handle("/metrics", middleware.MetricsHandler())

	aiLimiter := middleware.NewClientLimiter(cfg.AI.RatePerSec, cfg.AI.Burst)
	tasks.RegisterRoutes(r, ctrl, middleware.RateLimitMiddleware(aiLimiter))

	return r
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: l}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
