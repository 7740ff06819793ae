package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/halcyonpay/amlscreen/internal/audit"
	"github.com/halcyonpay/amlscreen/internal/config"
	"github.com/halcyonpay/amlscreen/internal/fetcher"
	"github.com/halcyonpay/amlscreen/internal/index"
	"github.com/halcyonpay/amlscreen/internal/match"
	"github.com/halcyonpay/amlscreen/internal/screen"
	"github.com/halcyonpay/amlscreen/internal/watchlist"
)

// appEnv bundles the collaborators every command wires the same way.
type appEnv struct {
	store      *index.Store
	registry   *watchlist.Registry
	refreshLog *watchlist.RefreshLog
	engine     *watchlist.Engine
	screener   *screen.Screener
	sink       *audit.Sink
}

// initApp builds the engine stack from configuration. The audit sink is
// attached only when a DSN is configured; everything else is mandatory.
func initApp(ctx context.Context, cfg *config.Config) (*appEnv, error) {
	store, err := index.Open(cfg.Paths.DBPath)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Fetch.TimeoutSecs) * time.Second
	client := fetcher.NewClient(fetcher.HTTPOptions{Timeout: timeout})
	refreshLog := watchlist.NewRefreshLog(cfg.Paths.LogDir())
	registry := watchlist.NewRegistry(cfg.Fetch.SourceURLOverrides())
	feeds := watchlist.NewFeedFetcher(client, refreshLog, cfg.Paths.SnapshotDir())
	engine := watchlist.NewEngine(registry, feeds, store, cfg.Fetch.Parallelism, timeout)

	policy := match.DefaultPolicy()
	if cfg.Screening.PolicyPath != "" {
		policy, err = match.LoadPolicy(cfg.Screening.PolicyPath)
		if err != nil {
			store.Close() //nolint:errcheck
			return nil, err
		}
		zap.L().Info("scoring policy loaded", zap.String("path", cfg.Screening.PolicyPath))
	}

	opts := screen.Options{
		OutDir:            cfg.Paths.OutDir,
		Environment:       cfg.Screening.Environment,
		ShowSlightMatches: cfg.Screening.ShowSlightMatches,
	}

	var sink *audit.Sink
	if cfg.Audit.DSN != "" {
		sink, err = audit.Open(ctx, cfg.Audit.DSN)
		if err != nil {
			store.Close() //nolint:errcheck
			return nil, err
		}
		opts.Auditor = sink
		zap.L().Info("audit sink connected")
	}

	screener := screen.NewScreener(store, engine, registry, refreshLog, match.NewScorer(policy), opts)

	return &appEnv{
		store:      store,
		registry:   registry,
		refreshLog: refreshLog,
		engine:     engine,
		screener:   screener,
		sink:       sink,
	}, nil
}

// Close releases the index store and the audit pool.
func (e *appEnv) Close() {
	if e.sink != nil {
		e.sink.Close()
	}
	if err := e.store.Close(); err != nil {
		zap.L().Warn("close index store", zap.Error(err))
	}
}
