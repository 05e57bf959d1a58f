package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	catalogpkg "github.com/clinical-rosetta/internal/catalog"
	"github.com/clinical-rosetta/internal/config"
	"github.com/clinical-rosetta/internal/db"
	"github.com/clinical-rosetta/internal/debug"
	"github.com/clinical-rosetta/internal/index"
	"github.com/clinical-rosetta/internal/learning"
	"github.com/clinical-rosetta/internal/logging"
	"github.com/clinical-rosetta/internal/match"
	"github.com/clinical-rosetta/internal/metrics"
	"github.com/clinical-rosetta/internal/normalize"
	"github.com/clinical-rosetta/internal/symspell"
)

// app holds the wired engine and everything that must be closed with it
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	engine   *match.Engine
	registry *prometheus.Registry
	closers  []func() error
}

// newApp builds the engine described by cfg
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	debug.SetLogger(logger)

	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// Step 1: Database
	var conn *db.Connection
	if cfg.NeedsDatabase() {
		conn, err = db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		if err = db.Migrate(ctx, conn.DB); err != nil {
			return nil, err
		}
	}

	// Step 2: Catalog and index
	var sqlDB *sql.DB
	if conn != nil {
		sqlDB = conn.DB
	}
	source, err := catalogpkg.FromLocation(cfg.Catalog, sqlDB, logger)
	if err != nil {
		return nil, err
	}
	cat, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := index.BuildDebug(cfg.Debug, cat.Concepts, cat.Mappings, cfg.Engine.IndexOptions())
	if err != nil {
		return nil, fmt.Errorf("building synonym index: %w", err)
	}

	// Step 3: Abbreviations
	dict := normalize.DefaultDictionary()
	if cfg.Abbreviations != "" {
		if dict, err = normalize.LoadDictionaryFile(cfg.Abbreviations); err != nil {
			return nil, err
		}
	}
	holder := normalize.NewHolder(dict)
	if cfg.WatchAbbreviations && cfg.Abbreviations != "" {
		if err = holder.Watch(ctx, cfg.Abbreviations, logger); err != nil {
			return nil, err
		}
	}

	// Step 4: Learning store
	backend, err := newBackend(ctx, cfg, conn)
	if err != nil {
		return nil, err
	}
	store, err := learning.NewStore(ctx, backend, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	// Step 5: Spelling correction
	var corrector *symspell.Corrector
	if cfg.SymSpell.Enabled {
		spell := cfg.SymSpell
		corrector = symspell.NewCorrector(symspell.BuildFromPhrases(idx.Phrases(), &spell), &spell, dict.Shorthands()...)
		logger.Info("spelling correction enabled", zap.Int("terms", corrector.Stats().TermCount))
	}

	// Step 6: Metrics and engine
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(a.registry)
	if err != nil {
		return nil, err
	}

	a.engine, err = match.NewEngine(match.EngineConfig{
		Index:      idx,
		Dictionary: holder,
		Learned:    store,
		Corrector:  corrector,
		Settings:   &cfg.Engine,
		Metrics:    m,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		return nil, err
	}

	stats := a.engine.Stats()
	logger.Info("engine ready",
		zap.String("catalog", cfg.Catalog),
		zap.String("learning_backend", cfg.LearningBackend),
		zap.Int("concepts", stats.Concepts),
		zap.Int("curated_mappings", stats.CuratedMappings),
		zap.Int("learned_mappings", stats.LearnedMappings),
		zap.Int("abbreviations", stats.Abbreviations))
	return a, nil
}

func newBackend(ctx context.Context, cfg *config.Config, conn *db.Connection) (learning.Backend, error) {
	switch cfg.LearningBackend {
	case config.BackendPostgres:
		return learning.NewPostgresBackend(conn.DB), nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return learning.NewRedisBackend(client, cfg.RedisPrefix), nil
	default:
		return learning.NewMemoryBackend(), nil
	}
}

// Close releases every resource in reverse order of acquisition
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
