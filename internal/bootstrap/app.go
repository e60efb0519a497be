// Package bootstrap assembles the application from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/events"
	"portfolio-backend/internal/generations"
	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/llm/provider"
	"portfolio-backend/internal/services/health"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/server"
	"portfolio-backend/internal/shared/storage/db"
	"portfolio-backend/internal/shared/storage/object"
	localstore "portfolio-backend/internal/shared/storage/object/local"
	s3store "portfolio-backend/internal/shared/storage/object/s3"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/sitegen"
)

// App holds shared dependencies.
type App struct {
	Config             config.Config
	Router             *gin.Engine
	DB                 *sql.DB
	Store              object.ObjectStore
	Events             events.Publisher
	LLM                llm.Client
	LLMInfo            provider.Info
	GenerationsRepo    generations.Repo
	GenerationsService *generations.Service
	GenerationsHandler *generations.Handler

	closers []func() error
}

// Option adjusts how Build wires dependencies.
type Option func(*options)

type options struct {
	llmClient llm.Client
	llmInfo   provider.Info
	store     object.ObjectStore
}

// WithLLMClient replaces the provider client, e.g. with a stub in tests.
func WithLLMClient(client llm.Client, info provider.Info) Option {
	return func(o *options) {
		o.llmClient = client
		o.llmInfo = info
	}
}

// WithStore replaces the configured object store.
func WithStore(store object.ObjectStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// Build prepares shared dependencies and the router.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB.Close)
	}

	app.Store = o.store
	if app.Store == nil {
		if app.Store, err = buildStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	app.Events, err = buildEvents(cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := app.Events.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	app.LLM, app.LLMInfo = o.llmClient, o.llmInfo
	if app.LLM == nil {
		if app.LLM, app.LLMInfo, err = provider.New(ctx, cfg); err != nil {
			return nil, err
		}
	}

	if app.DB != nil {
		app.GenerationsRepo = &generations.PGRepo{DB: app.DB}
	} else {
		app.GenerationsRepo = generations.NewMemoryRepo()
	}
	app.GenerationsService = &generations.Service{
		Store:     app.Store,
		Repo:      app.GenerationsRepo,
		Generator: sitegen.New(app.LLM, app.LLMInfo.Provider, app.LLMInfo.Model),
		Events:    app.Events,
	}
	app.GenerationsHandler = generations.NewHandler(app.GenerationsService)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      cfg,
		Generations: app.GenerationsHandler,
		Health:      health.NewService(healthPinger(app.DB), app.LLMInfo.Provider),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"database":     app.DB != nil,
		"llm_provider": app.LLMInfo.Provider,
		"llm_model":    app.LLMInfo.Model,
	})
	return app, nil
}

// Close releases the database and broker connections.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "database unavailable", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			KMSKeyID:        cfg.SSEKMSKeyID,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildEvents(cfg config.Config) (events.Publisher, error) {
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		return events.Nop{}, nil
	}
	pub, err := events.DialAMQP(cfg.RabbitMQURL, cfg.EventsExchange)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.events_disabled", map[string]any{"error": err})
			return events.Nop{}, nil
		}
		return nil, err
	}
	return pub, nil
}

// healthPinger avoids storing a typed nil *sql.DB in the interface.
func healthPinger(sqlDB *sql.DB) health.Pinger {
	if sqlDB == nil {
		return nil
	}
	return sqlDB
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
