package podds

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/richard-senior/podds/internal/logger"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// targetAcceptance is the optimal acceptance rate for a one dimensional random walk.
	targetAcceptance = 0.44
	adaptBatch       = 50
	cancelCheckEvery = 100
)

// FitHook is called after every posterior fit that actually ran the sampler.
type FitHook func(key CacheKey, p *Posterior, elapsed time.Duration)

// RateEstimator fits the posterior over home/away attack/defense rates.
//
// Each rate has a truncated normal prior centred on the team average with
// spread max(std, MinStd). Attack rates are additionally updated by a Poisson
// likelihood over the observed goals-for sequence; defense rates only see
// their prior. The sampler is a component wise random walk Metropolis with
// step sizes tuned during warm up.
type RateEstimator struct {
	cfg   *PoddsConfig
	cache *PosteriorCache
	seed  uint64
	fits  *atomic.Int64

	// OnFit, when set, observes each fit. It must not modify the posterior.
	OnFit FitHook
}

// NewRateEstimator creates an estimator. cache may be nil to disable memoisation.
func NewRateEstimator(cfg *PoddsConfig, cache *PosteriorCache) *RateEstimator {
	return &RateEstimator{cfg: cfg, cache: cache, seed: cfg.Seed, fits: new(atomic.Int64)}
}

// WithSeed returns a copy of the estimator sampling from another seed. The
// copy shares the cache, the fit counter and the hook.
func (e *RateEstimator) WithSeed(seed uint64) *RateEstimator {
	return &RateEstimator{cfg: e.cfg, cache: e.cache, seed: seed, fits: e.fits, OnFit: e.OnFit}
}

func (e *RateEstimator) Seed() uint64 {
	return e.seed
}

// FitCount is the number of times the sampler has completed a fit.
func (e *RateEstimator) FitCount() int64 {
	return e.fits.Load()
}

func (e *RateEstimator) Cache() *PosteriorCache {
	return e.cache
}

// EstimateRates returns the posterior for the fixture. It fails with
// *InsufficientDataError only when both teams carry no statistics and no
// observations; a single missing side falls back to the default prior.
// Identical inputs return the cached posterior without sampling again.
func (e *RateEstimator) EstimateRates(ctx context.Context, home, away *TeamStats, obsHome, obsAway []int, fid Fidelity) (*Posterior, error) {
	homeMissing := home.IsEmpty() && len(obsHome) == 0
	awayMissing := away.IsEmpty() && len(obsAway) == 0
	if homeMissing && awayMissing {
		return nil, &InsufficientDataError{HomeMissing: true, AwayMissing: true}
	}
	if err := fid.Validate(); err != nil {
		return nil, fitError(StageSetup, err)
	}

	h := home.Normalized(e.cfg)
	a := away.Normalized(e.cfg)
	oh := validGoals(obsHome)
	oa := validGoals(obsAway)
	key := NewCacheKey(&h, &a, oh, oa, fid, e.seed).WithSettings(e.cfg)

	fit := func() (*Posterior, error) {
		start := time.Now()
		p, err := e.fit(ctx, &h, &a, oh, oa, fid)
		if err != nil {
			logger.Warn("Posterior fit failed", err)
			return nil, err
		}
		e.fits.Add(1)
		elapsed := time.Since(start)
		logger.Debug("Posterior fitted", fid.Name, p.Len(), elapsed.String())
		if e.OnFit != nil {
			e.OnFit(key, p, elapsed)
		}
		return p, nil
	}
	if e.cache == nil {
		return fit()
	}
	return e.cache.GetOrFit(ctx, key, fit)
}

// rateTarget is the unnormalised log posterior of a single rate.
type rateTarget struct {
	prior    truncatedNormal
	observed []int
}

func (t rateTarget) logProb(x float64) float64 {
	lp := t.prior.LogProb(x)
	if math.IsInf(lp, -1) || len(t.observed) == 0 {
		return lp
	}
	pois := distuv.Poisson{Lambda: x}
	for _, k := range t.observed {
		lp += pois.LogProb(float64(k))
	}
	return lp
}

func (e *RateEstimator) targets(home, away *TeamStats, obsHome, obsAway []int) [NumRates]rateTarget {
	prior := func(mu, sd float64) truncatedNormal {
		return truncatedNormal{
			Mu:    mu,
			Sigma: math.Max(sd, e.cfg.MinStd),
			Lower: e.cfg.RateLowerBound,
			Upper: e.cfg.RateUpperBound,
		}
	}
	var t [NumRates]rateTarget
	t[HomeAttack] = rateTarget{prior: prior(home.AvgGoalsFor, home.StdGoalsFor), observed: obsHome}
	t[HomeDefense] = rateTarget{prior: prior(home.AvgGoalsAgainst, home.StdGoalsAgainst)}
	t[AwayAttack] = rateTarget{prior: prior(away.AvgGoalsFor, away.StdGoalsFor), observed: obsAway}
	t[AwayDefense] = rateTarget{prior: prior(away.AvgGoalsAgainst, away.StdGoalsAgainst)}
	return t
}

type chainResult struct {
	draws    [NumRates][]float64
	accepted [NumRates]int
}

func (e *RateEstimator) fit(ctx context.Context, home, away *TeamStats, obsHome, obsAway []int, fid Fidelity) (*Posterior, error) {
	targets := e.targets(home, away, obsHome, obsAway)
	results := make([]chainResult, fid.Chains)

	g, gctx := errgroup.WithContext(ctx)
	for c := range fid.Chains {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(e.seed, uint64(c)+1))
			res, err := runChain(gctx, targets, fid, rng)
			if err != nil {
				return err
			}
			results[c] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fitError(StageCancelled, err)
		}
		return nil, fitError(StageSampling, err)
	}

	p := newPosterior(fid.Draws(), fid, e.seed)
	for _, res := range results {
		for i := range fid.Samples {
			p.append([NumRates]float64{
				res.draws[HomeAttack][i],
				res.draws[HomeDefense][i],
				res.draws[AwayAttack][i],
				res.draws[AwayDefense][i],
			})
		}
	}

	perChain := make([][]float64, fid.Chains)
	for r := range NumRates {
		total := 0
		for c, res := range results {
			total += res.accepted[r]
			perChain[c] = res.draws[r]
		}
		p.Diagnostics.Acceptance[r] = float64(total) / float64(fid.Draws())
		if total == 0 {
			return nil, fitError(StageSampling, fmt.Errorf("%s: no proposals accepted", RateNames[r]))
		}
		rhat := splitRHat(perChain)
		p.Diagnostics.RHat[r] = rhat
		if math.IsNaN(rhat) || rhat > e.cfg.MaxRHat {
			return nil, fitError(StageConvergence, fmt.Errorf("%s: split R-hat %.3f exceeds %.3f", RateNames[r], rhat, e.cfg.MaxRHat))
		}
	}

	if err := p.Validate(e.cfg.RateLowerBound, e.cfg.RateUpperBound); err != nil {
		return nil, fitError(StageSampling, err)
	}
	return p, nil
}

// runChain runs one Metropolis-within-Gibbs chain. Warm up draws adapt the
// per rate step sizes and are discarded.
func runChain(ctx context.Context, targets [NumRates]rateTarget, fid Fidelity, rng *rand.Rand) (chainResult, error) {
	var (
		res     chainResult
		state   [NumRates]float64
		logp    [NumRates]float64
		step    [NumRates]float64
		batchOK [NumRates]int
	)
	for r := range NumRates {
		state[r] = targets[r].prior.Rand(rng)
		logp[r] = targets[r].logProb(state[r])
		step[r] = targets[r].prior.Sigma
		res.draws[r] = make([]float64, 0, fid.Samples)
	}

	total := fid.Warmup + fid.Samples
	for it := range total {
		if it%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		warm := it < fid.Warmup
		for r := range NumRates {
			proposal := state[r] + step[r]*rng.NormFloat64()
			lp := targets[r].logProb(proposal)
			if math.IsNaN(lp) {
				return res, fmt.Errorf("%s: log density is NaN at %f", RateNames[r], proposal)
			}
			if lp-logp[r] >= 0 || math.Log(rng.Float64()) < lp-logp[r] {
				state[r], logp[r] = proposal, lp
				if warm {
					batchOK[r]++
				} else {
					res.accepted[r]++
				}
			}
			if !warm {
				res.draws[r] = append(res.draws[r], state[r])
			}
		}
		if warm && (it+1)%adaptBatch == 0 {
			for r := range NumRates {
				rate := float64(batchOK[r]) / adaptBatch
				step[r] *= math.Exp(rate - targetAcceptance)
				batchOK[r] = 0
			}
		}
	}
	return res, nil
}
