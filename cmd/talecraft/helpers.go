package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"talecraft/internal/config"
	"talecraft/internal/oracle"
	"talecraft/internal/store"
	"talecraft/internal/store/postgres"
	"talecraft/internal/store/sqlite"
	"talecraft/internal/worldbuild"
)

const configFile = "talecraft.yaml"

func loadConfig() (*config.ProjectConfig, error) {
	return config.LoadProjectConfig(configFile)
}

func newLogger(cfg *config.ProjectConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Debug {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

func openStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err = postgres.New(ctx, cfg.Store.DSN)
	default:
		db, err = sqlite.Open(cfg.Store.DataDir)
	}
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, err
	}
	return db, nil
}

func loadTemplates(cfg *config.ProjectConfig) (*config.Templates, error) {
	if cfg.Templates == "" {
		return config.DefaultTemplates(), nil
	}
	return config.LoadTemplates(cfg.Templates)
}

// newOracle returns nil when the oracle cannot be configured; the
// orchestrator then runs in its rule-based fallback mode.
func newOracle(ctx context.Context, log *zap.Logger) oracle.Oracle {
	ocfg, err := oracle.ConfigFromEnv()
	if err != nil {
		log.Warn("oracle config invalid, falling back to templates", zap.Error(err))
		return nil
	}
	g, err := oracle.NewGemini(ctx, ocfg, log)
	if err != nil {
		if !errors.Is(err, oracle.ErrUnavailable) {
			log.Warn("oracle init failed, falling back to templates", zap.Error(err))
		}
		return nil
	}
	return g
}

// cliEnv bundles what most subcommands need.
type cliEnv struct {
	cfg  *config.ProjectConfig
	db   store.Store
	log  *zap.Logger
	orch *worldbuild.Orchestrator
}

func setup(ctx context.Context) (*cliEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	templates, err := loadTemplates(cfg)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	return &cliEnv{
		cfg:  cfg,
		db:   db,
		log:  log,
		orch: worldbuild.New(newOracle(ctx, log), templates, log),
	}, nil
}

func (e *cliEnv) close(ctx context.Context) {
	e.db.Close(ctx)
	_ = e.log.Sync()
}

func requireProject(projectID string) error {
	if projectID == "" {
		return fmt.Errorf("--project is required")
	}
	return nil
}
