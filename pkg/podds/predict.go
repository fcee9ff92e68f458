package podds

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richard-senior/podds/internal/logger"
)

// PredictionRequest is one fixture to predict. Zero values fall back to the
// predictor's configuration.
type PredictionRequest struct {
	Home        *TeamStats
	Away        *TeamStats
	HomeLabel   string
	AwayLabel   string
	Fidelity    string
	Simulations int
	Seed        *uint64
	NoShrinkage bool
	Progress    ProgressFunc
}

// Prediction is the full output of one pipeline run.
type Prediction struct {
	ID          string            `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	HomeTeam    string            `json:"home_team"`
	AwayTeam    string            `json:"away_team"`
	Fidelity    Fidelity          `json:"fidelity"`
	Seed        uint64            `json:"seed"`
	Simulations int               `json:"simulations"`
	HomeStats   TeamStats         `json:"home_stats"`
	AwayStats   TeamStats         `json:"away_stats"`
	Rates       PosteriorSummary  `json:"rates"`
	Diagnostics Diagnostics       `json:"diagnostics"`
	Summary     *AnalyticsSummary `json:"summary"`
	Baseline    *PoissonBaseline  `json:"baseline"`
	FitTime     time.Duration     `json:"fit_time_ns"`
	SimTime     time.Duration     `json:"sim_time_ns"`
}

// Predictor runs shrink, estimate, simulate and summarize for a fixture.
type Predictor struct {
	cfg        *PoddsConfig
	estimator  *RateEstimator
	engine     *SimulationEngine
	aggregator AnalyticsAggregator

	mu     sync.RWMutex
	priors GlobalPriors
}

func NewPredictor(cfg *PoddsConfig, estimator *RateEstimator, priors GlobalPriors) *Predictor {
	return &Predictor{
		cfg:        cfg,
		estimator:  estimator,
		engine:     NewSimulationEngine(cfg),
		aggregator: NewAnalyticsAggregator(cfg),
		priors:     priors,
	}
}

func (p *Predictor) Config() *PoddsConfig {
	return p.cfg
}

func (p *Predictor) Estimator() *RateEstimator {
	return p.estimator
}

// SetPriors replaces the shrinkage target, for example after reloading team data.
func (p *Predictor) SetPriors(priors GlobalPriors) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priors = priors
}

func (p *Predictor) Priors() GlobalPriors {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.priors
}

func label(given string, ts *TeamStats, fallback string) string {
	if given != "" {
		return given
	}
	if ts != nil && ts.Name != "" {
		return ts.Name
	}
	return fallback
}

// Predict runs the whole pipeline. The fit is bounded by FitTimeout on top of
// any deadline ctx already carries.
func (p *Predictor) Predict(ctx context.Context, req PredictionRequest) (*Prediction, error) {
	fid, err := p.cfg.Fidelity(req.Fidelity)
	if err != nil {
		return nil, err
	}
	n := req.Simulations
	if n == 0 {
		n = p.cfg.Simulations
	}
	if n < 1 || n > p.cfg.MaxSimulations {
		return nil, fmt.Errorf("%w: got %d, limit %d", ErrInvalidSimulationCount, n, p.cfg.MaxSimulations)
	}
	seed := p.cfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	home, away := req.Home, req.Away
	if !req.NoShrinkage {
		priors := p.Priors()
		home = Shrink(home, priors, p.cfg.ShrinkageK, p.cfg.MinStd)
		away = Shrink(away, priors, p.cfg.ShrinkageK, p.cfg.MinStd)
	}

	var obsHome, obsAway []int
	if home != nil {
		obsHome = home.RecentGoalsFor
	}
	if away != nil {
		obsAway = away.RecentGoalsFor
	}

	est := p.estimator
	if seed != est.Seed() {
		est = est.WithSeed(seed)
	}
	fitCtx := ctx
	if p.cfg.FitTimeout > 0 {
		var cancel context.CancelFunc
		fitCtx, cancel = context.WithTimeout(ctx, p.cfg.FitTimeout)
		defer cancel()
	}

	start := time.Now()
	post, err := est.EstimateRates(fitCtx, home, away, obsHome, obsAway, fid)
	if err != nil {
		return nil, err
	}
	fitTime := time.Since(start)

	start = time.Now()
	var pop *Population
	if p.cfg.Workers > 1 {
		pop, err = p.engine.SimulatePopulationParallel(ctx, post, n, seed, p.cfg.Workers, req.Progress)
	} else {
		pop, err = p.engine.SimulatePopulation(post, n, seed, req.Progress)
	}
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	simTime := time.Since(start)

	homeLabel := label(req.HomeLabel, req.Home, "Home")
	awayLabel := label(req.AwayLabel, req.Away, "Away")
	summary, err := p.aggregator.Summarize(pop, homeLabel, awayLabel)
	if err != nil {
		return nil, err
	}

	pred := &Prediction{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		HomeTeam:    homeLabel,
		AwayTeam:    awayLabel,
		Fidelity:    fid,
		Seed:        seed,
		Simulations: n,
		HomeStats:   home.Normalized(p.cfg),
		AwayStats:   away.Normalized(p.cfg),
		Rates:       post.Summary(),
		Diagnostics: post.Diagnostics,
		Summary:     summary,
		Baseline:    NewPoissonBaseline(summary.HomeExpectedGoals, summary.AwayExpectedGoals, p.cfg),
		FitTime:     fitTime,
		SimTime:     simTime,
	}
	logger.Info("Prediction complete", homeLabel, "v", awayLabel,
		fmt.Sprintf("H %.1f%% D %.1f%% A %.1f%%", summary.HomeWinPct, summary.DrawPct, summary.AwayWinPct))
	return pred, nil
}

// Outcome converts the prediction into the form EvaluatePrediction scores.
// Actual goals are -1 until the result is known.
func (p *Prediction) Outcome() PredictionOutcome {
	best := p.Summary.MostLikelyScore()
	return PredictionOutcome{
		ID:                 p.ID,
		HomeTeam:           p.HomeTeam,
		AwayTeam:           p.AwayTeam,
		HomeWinPct:         p.Summary.HomeWinPct,
		DrawPct:            p.Summary.DrawPct,
		AwayWinPct:         p.Summary.AwayWinPct,
		ExpectedHomeGoals:  p.Summary.HomeExpectedGoals,
		ExpectedAwayGoals:  p.Summary.AwayExpectedGoals,
		PredictedHomeGoals: best.Home,
		PredictedAwayGoals: best.Away,
		ActualHomeGoals:    -1,
		ActualAwayGoals:    -1,
	}
}
