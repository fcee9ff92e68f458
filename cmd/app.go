package main

import (
	"context"
	"fmt"
	"time"

	"github.com/richard-senior/podds/internal/config"
	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/store"
	"github.com/richard-senior/podds/pkg/teamdata"
	"github.com/richard-senior/podds/pkg/tools"
)

// app is everything a command needs, built once from the configuration.
type app struct {
	cfg       *podds.PoddsConfig
	db        *store.Store
	cache     *podds.PosteriorCache
	predictor *podds.Predictor
	service   *tools.Service
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ConfigureLogger(cfg); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	var backing podds.PosteriorStore
	if cfg.PoddsDbPath != "" {
		a.db, err = store.Open(cfg.PoddsDbPath)
		if err != nil {
			return nil, err
		}
		backing = a.db
	}
	a.cache = podds.NewPosteriorCache(cfg.CacheSize, cfg.CacheTTL, backing)

	estimator := podds.NewRateEstimator(cfg, a.cache)
	estimator.OnFit = func(key podds.CacheKey, p *podds.Posterior, elapsed time.Duration) {
		worst := 0.0
		for _, r := range p.Diagnostics.RHat {
			worst = max(worst, r)
		}
		logger.Info("Fitted posterior", p.Fidelity.Name, elapsed.Round(time.Millisecond).String(), fmt.Sprintf("max R-hat %.3f", worst))
	}
	a.predictor = podds.NewPredictor(cfg, estimator, podds.DefaultGlobalPriors(cfg))

	teams := teamdata.Empty()
	if cfg.TeamDataPath != "" {
		loaded, err := teamdata.Load(ctx, cfg.TeamDataPath, cfg)
		if err != nil {
			// predictions with inline stats still work
			logger.Warn("Team data unavailable", err)
		} else {
			teams = loaded
		}
	}
	a.service = tools.NewService(cfg, a.predictor, a.db, teams)
	return a, nil
}

func (a *app) Close() error {
	a.cache.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
