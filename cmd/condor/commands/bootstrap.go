package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/metrics"
	"github.com/wonny/condor/internal/pipeline"
	"github.com/wonny/condor/internal/s0_data"
	"github.com/wonny/condor/internal/selection"
	"github.com/wonny/condor/internal/strategyconfig"
	"github.com/wonny/condor/pkg/config"
	"github.com/wonny/condor/pkg/database"
	"github.com/wonny/condor/pkg/logger"
	"github.com/wonny/condor/pkg/redis"
)

// app holds the wired dependencies shared by every long-running command
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	runner  *pipeline.Runner
	repo    contracts.ScreenRunRepository
	db      *database.DB
	redis   *redis.Client
}

// newApp loads config and wires S0 → S4 plus persistence
// A missing DATABASE_URL falls back to an in-memory repository.
func newApp(ctx context.Context, persist bool) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if strategyPath != "" {
		cfg.Screener.StrategyConfigPath = strategyPath
	}
	if dataDir != "" {
		cfg.Screener.DataDir = dataDir
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	// 3. Strategy config
	strategy, _, err := strategyconfig.Load(cfg.Screener.StrategyConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}

	// 4. S0 loader
	loader := s0_data.NewLoader(cfg.Screener.DataDir, log)
	if cfg.Screener.EarningsCalendar != "" {
		if err := loader.LoadEarningsCalendar(cfg.Screener.EarningsCalendar); err != nil {
			return nil, fmt.Errorf("load earnings calendar: %w", err)
		}
	}

	// 5. Persistence
	if persist {
		if err := a.connect(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	// 6. Pipeline
	runner, err := pipeline.NewRunner(strategy, loader, a.repo, log, a.metrics)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	a.runner = runner

	return a, nil
}

func (a *app) connect(ctx context.Context) error {
	db, err := database.New(a.cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		a.log.Warn("DATABASE_URL not set, screen runs are kept in memory only")
		a.repo = selection.NewMemoryRepository()
	case err != nil:
		return fmt.Errorf("connect to database: %w", err)
	default:
		a.db = db
		repo := selection.NewRepository(db.Pool)

		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(schemaCtx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		a.repo = repo
		a.log.Info("Connected to database")
	}

	rdb, err := redis.New(a.cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rdb
	return nil
}

// Close releases connections; safe on a partially built app
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.db.Close()
}
