// Package app wires the store, the resource registry, the router and the HTTP
// middleware into one runnable application.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/conduit-lang/restifier/internal/cli/config"
	"github.com/conduit-lang/restifier/internal/orm/store"
	"github.com/conduit-lang/restifier/internal/resource"
	"github.com/conduit-lang/restifier/internal/web/middleware"
	"github.com/conduit-lang/restifier/internal/web/router"
	"github.com/conduit-lang/restifier/internal/web/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App is the application context: the registered resources, keyed by
// collection, and everything serving them.
type App struct {
	config   *config.Config
	logger   *zap.Logger
	store    store.Store
	registry *resource.Registry
	router   *router.Router
	metrics  *prometheus.Registry
}

// Option configures an App
type Option func(*App)

// WithLogger replaces the logger built from the log section
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithStore replaces the store opened from the store section
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetricsRegistry collects the runtime and HTTP metrics into reg instead
// of a registry owned by the application
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.metrics = reg }
}

// New creates an application without resources. Global middleware is
// installed here, before any route exists.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		logger, err := NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		a.logger = logger
	}
	if a.store == nil {
		s, err := OpenStore(cfg.Store, a.logger)
		if err != nil {
			return nil, err
		}
		a.store = s
	}

	a.registry = resource.NewRegistry(a.store,
		resource.WithLogger(a.logger.Named("resource")),
		resource.WithConcurrency(cfg.Server.Concurrency),
	)
	a.router = router.New(
		router.WithPrefix(cfg.Server.APIPrefix),
		router.WithLogger(a.logger.Named("router")),
	)

	global := []middleware.Middleware{
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    a.logger.Named("http"),
			SkipPaths: a.skippedPaths(),
		}),
	}
	if cfg.Metrics.Enabled {
		m, err := a.newMetrics()
		if err != nil {
			a.store.Close()
			return nil, err
		}
		global = append(global, m.Middleware())
	}
	global = append(global, middleware.Recovery(a.logger))
	a.router.Use(global...)

	if cfg.Metrics.Enabled {
		a.router.Handle(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	}
	return a, nil
}

// FromConfig creates an application and registers every declared resource
func FromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	models, err := BuildModels(cfg.Resources)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Register(ctx, models...); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Validate(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) skippedPaths() []string {
	if a.config.Metrics.Enabled {
		return []string{a.config.Metrics.Path}
	}
	return nil
}

func (a *App) newMetrics() (*middleware.Metrics, error) {
	if a.metrics == nil {
		a.metrics = prometheus.NewRegistry()
	}
	if err := a.metrics.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}
	if err := a.metrics.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	return middleware.NewMetrics(a.metrics)
}

// Register adds resources and mounts their routes. Sub-resources are
// registered through their parent and mounted under it.
func (a *App) Register(ctx context.Context, models ...*resource.Model) error {
	for _, m := range models {
		if m.Parent() != nil {
			return fmt.Errorf("resource %s is a sub-resource of %s; register the parent instead", m.Name(), m.Parent().Name())
		}
		_, mounted := a.registry.Model(m.Collection())
		if err := a.registry.Register(ctx, m); err != nil {
			return err
		}
		if mounted {
			continue
		}
		if err := a.router.Mount(m); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that every reference field targets a registered collection
func (a *App) Validate() error {
	return a.registry.Validate()
}

// Model returns the resource serving a collection
func (a *App) Model(collection string) (*resource.Model, bool) {
	return a.registry.Model(collection)
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}

// Routes lists every mounted route
func (a *App) Routes() []router.RouteInfo {
	return a.router.Routes()
}

// Logger returns the application logger
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store returns the document store
func (a *App) Store() store.Store {
	return a.store
}

// Server builds an HTTP server for the application. The store is closed and
// the logger flushed when the server shuts down.
func (a *App) Server() (*server.Server, error) {
	sc := a.config.Server
	cfg := server.DefaultConfig(a.router)
	cfg.Address = sc.Address()
	if sc.ReadTimeout > 0 {
		cfg.ReadTimeout = sc.ReadTimeout
	}
	if sc.WriteTimeout > 0 {
		cfg.WriteTimeout = sc.WriteTimeout
	}
	if sc.IdleTimeout > 0 {
		cfg.IdleTimeout = sc.IdleTimeout
	}
	if sc.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = sc.ShutdownTimeout
	}

	srv, err := server.New(cfg, a.logger.Named("server"))
	if err != nil {
		return nil, err
	}
	srv.RegisterHook(func(ctx context.Context) error {
		return a.Close()
	})
	return srv, nil
}

// Close releases the store and flushes the logger
func (a *App) Close() error {
	err := a.store.Close()
	_ = a.logger.Sync()
	return err
}
