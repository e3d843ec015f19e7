package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/travelog-backend/internal/data/db"
	"github.com/yungbote/travelog-backend/internal/http"
	"github.com/yungbote/travelog-backend/internal/observability"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	store        *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(cfg.MetricsEnabled)

	store, err := db.NewService(cfg.DB, log)
	if err != nil {
		_ = otelShutdown(ctx)
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := store.AutoMigrateAll(); err != nil {
			_ = store.Close()
			_ = otelShutdown(ctx)
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}
	theDB := store.DB()

	clients, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		_ = store.Close()
		_ = otelShutdown(ctx)
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = store.Close()
		_ = otelShutdown(ctx)
		log.Sync()
		return nil, err
	}

	middleware, err := wireMiddleware(log, cfg)
	if err != nil {
		clients.Close()
		_ = store.Close()
		_ = otelShutdown(ctx)
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, cfg, serviceset, pingDB(theDB))
	server := wireServer(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		store:        store,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work: the daily plan status sweep.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Cfg.SweepEnabled && a.Services.Sweep != nil {
		if err := a.Services.Sweep.Start(ctx); err != nil {
			return fmt.Errorf("start sweep scheduler: %w", err)
		}
		a.Log.Info("Plan status sweep scheduled", "cron", a.Cfg.SweepCron, "timezone", a.Cfg.SweepTimezone)
	}
	return nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", addr)
	return a.Server.Run(addr)
}

// Close drains HTTP, stops the scheduler and releases clients in that order.
func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown failed", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Sweep != nil {
		a.Services.Sweep.Stop()
	}
	a.Clients.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func pingDB(theDB *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := theDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
