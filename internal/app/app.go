package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/session-archiver/internal/repository"
	"github.com/noah-isme/session-archiver/internal/service"
	"github.com/noah-isme/session-archiver/pkg/cache"
	"github.com/noah-isme/session-archiver/pkg/clock"
	"github.com/noah-isme/session-archiver/pkg/config"
	"github.com/noah-isme/session-archiver/pkg/database"
	"github.com/noah-isme/session-archiver/pkg/logger"
	"github.com/noah-isme/session-archiver/pkg/storage"
)

// Process exit codes shared by the archiver and the operator tools.
const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitPartial = 2
)

// App holds the dependencies every entry point needs.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sqlx.DB
	Metrics   *service.MetricsService
	Validator *validator.Validate
	Clock     clock.Clock
	Evaluator service.Evaluator

	redis *redis.Client
}

// New loads configuration, builds the logger and connects to Postgres.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		_ = logr.Sync()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var metrics *service.MetricsService
	if cfg.Archiver.MetricsEnable {
		metrics = service.NewMetricsService()
	}

	loc := cfg.Archiver.Location()
	if cfg.Archiver.Timezone != "" && loc.String() != cfg.Archiver.Timezone {
		logr.Sugar().Warnw("schedule timezone not loaded, using UTC", "timezone", cfg.Archiver.Timezone)
	}

	return &App{
		Config:    cfg,
		Logger:    logr,
		DB:        db,
		Metrics:   metrics,
		Validator: validator.New(),
		Clock:     clock.System{},
		Evaluator: service.NewEvaluator(loc),
	}, nil
}

// Close releases connections and flushes the logger.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
	_ = a.Logger.Sync()
}

// Lifecycle builds the archival job. Redis is connected only when the run lock is enabled.
func (a *App) Lifecycle(ctx context.Context) (*service.LifecycleService, error) {
	client, err := cache.NewRedis(ctx, a.Config.Redis)
	if err != nil {
		return nil, err
	}
	a.redis = client

	cfg := service.LifecycleConfig{
		BatchSize: a.Config.Archiver.BatchSize,
		Reason:    a.Config.Archiver.Reason,
	}
	if client != nil {
		cfg.LockKey = a.Config.Archiver.LockKey
		cfg.LockTTL = a.Config.Archiver.LockTTL
	}

	return service.NewLifecycleService(
		repository.NewArchiveRepository(a.DB),
		repository.NewLockRepository(client),
		a.Clock,
		a.Evaluator,
		a.Metrics,
		cfg,
		a.Validator,
		a.Logger.Named("lifecycle"),
	), nil
}

// Dedupe builds the duplicate resolver.
func (a *App) Dedupe() *service.DedupeService {
	return service.NewDedupeService(repository.NewDuplicateRepository(a.DB), a.Clock, a.Metrics, a.Validator, a.Logger.Named("dedupe"))
}

// Restore builds the restoration tool.
func (a *App) Restore() *service.RestoreService {
	return service.NewRestoreService(repository.NewRestoreRepository(a.DB), a.Clock, a.Evaluator, a.Metrics, a.Validator, a.Logger.Named("restore"))
}

// Counters builds the counter reconciler.
func (a *App) Counters() *service.CounterService {
	return service.NewCounterService(repository.NewCounterRepository(a.DB), a.Clock, a.Metrics, a.Logger.Named("counters"))
}

// Exporter builds the report writer rooted at the configured reports directory.
func (a *App) Exporter() (*service.ReportExporter, error) {
	store, err := storage.NewLocalStorage(a.Config.Archiver.ReportsDir)
	if err != nil {
		return nil, err
	}
	return service.NewReportExporter(store, a.Config.Archiver.ReportsTTL, a.Logger.Named("reports")), nil
}
