package podds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func estimate(t *testing.T, e *RateEstimator, home, away *TeamStats, fid Fidelity) *Posterior {
	t.Helper()
	var oh, oa []int
	if home != nil {
		oh = home.RecentGoalsFor
	}
	if away != nil {
		oa = away.RecentGoalsFor
	}
	p, err := e.EstimateRates(context.Background(), home, away, oh, oa, fid)
	require.NoError(t, err)
	return p
}

func TestEstimateRatesShapeAndBounds(t *testing.T) {
	cfg := DefaultPoddsConfig()
	e := NewRateEstimator(cfg, nil)
	p := estimate(t, e, e2eHome(), e2eAway(), QuickFidelity)

	require.Equal(t, QuickFidelity.Draws(), p.Len())
	for r := range NumRates {
		assert.Len(t, p.Series(r), p.Len(), RateNames[r])
	}
	require.NoError(t, p.Validate(cfg.RateLowerBound, cfg.RateUpperBound))

	for r := range NumRates {
		assert.Greater(t, p.Diagnostics.Acceptance[r], 0.1, RateNames[r])
		assert.Less(t, p.Diagnostics.Acceptance[r], 0.9, RateNames[r])
		assert.LessOrEqual(t, p.Diagnostics.RHat[r], cfg.MaxRHat, RateNames[r])
	}

	s := p.Summary()
	assert.InDelta(t, 1.9, s.HomeAttack.Mean, 0.4)
	assert.InDelta(t, 1.0, s.AwayAttack.Mean, 0.4)
	assert.Less(t, s.HomeAttack.Q05, s.HomeAttack.Q95)
	assert.Equal(t, "quick", s.Fidelity)
}

func TestEstimateRatesDeterministic(t *testing.T) {
	cfg := DefaultPoddsConfig()
	a := estimate(t, NewRateEstimator(cfg, nil), e2eHome(), e2eAway(), QuickFidelity)
	b := estimate(t, NewRateEstimator(cfg, nil), e2eHome(), e2eAway(), QuickFidelity)
	assert.Equal(t, a, b)

	c := estimate(t, NewRateEstimator(cfg, nil).WithSeed(7), e2eHome(), e2eAway(), QuickFidelity)
	assert.NotEqual(t, a.HomeAttack, c.HomeAttack)
}

func TestEstimateRatesCachesFits(t *testing.T) {
	cfg := DefaultPoddsConfig()
	cache := NewPosteriorCache(cfg.CacheSize, cfg.CacheTTL, nil)
	e := NewRateEstimator(cfg, cache)
	var hooked []string
	e.OnFit = func(key CacheKey, p *Posterior, elapsed time.Duration) {
		hooked = append(hooked, key.Fidelity.Name)
	}

	first := estimate(t, e, e2eHome(), e2eAway(), QuickFidelity)
	second := estimate(t, e, e2eHome(), e2eAway(), QuickFidelity)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), e.FitCount())
	assert.Equal(t, []string{"quick"}, hooked)

	// differences below the rounding precision hit the same entry
	nudged := e2eHome()
	nudged.AvgGoalsFor += 0.0001
	estimate(t, e, nudged, e2eAway(), QuickFidelity)
	assert.Equal(t, int64(1), e.FitCount())

	// a different fidelity is a different entry
	full := estimate(t, e, e2eHome(), e2eAway(), FullFidelity)
	assert.Equal(t, FullFidelity.Draws(), full.Len())
	assert.Equal(t, int64(2), e.FitCount())

	// seeded copies share the counter
	estimate(t, e.WithSeed(99), e2eHome(), e2eAway(), QuickFidelity)
	assert.Equal(t, int64(3), e.FitCount())
	assert.Equal(t, 3, cache.Len())
	assert.Equal(t, []string{"quick", "full", "quick"}, hooked)
}

func TestEstimateRatesInsufficientData(t *testing.T) {
	e := NewRateEstimator(DefaultPoddsConfig(), nil)
	_, err := e.EstimateRates(context.Background(), nil, &TeamStats{}, nil, nil, QuickFidelity)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.True(t, ide.HomeMissing)
	assert.True(t, ide.AwayMissing)
}

func TestEstimateRatesPriorOnlyFallback(t *testing.T) {
	cfg := DefaultPoddsConfig()
	e := NewRateEstimator(cfg, nil)

	p := estimate(t, e, e2eHome(), nil, QuickFidelity)
	require.NoError(t, p.Validate(cfg.RateLowerBound, cfg.RateUpperBound))
	assert.InDelta(t, cfg.DefaultGoalsAvg, p.Summary().AwayAttack.Mean, 0.35)

	// observations with no averages still count as data
	p, err := e.EstimateRates(context.Background(), nil, nil, []int{2, 2, 3}, nil, QuickFidelity)
	require.NoError(t, err)
	assert.Equal(t, QuickFidelity.Draws(), p.Len())
}

func TestEstimateRatesCancelled(t *testing.T) {
	e := NewRateEstimator(DefaultPoddsConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EstimateRates(ctx, e2eHome(), e2eAway(), nil, nil, QuickFidelity)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFittingFailed)
	assert.True(t, errors.Is(err, context.Canceled))
	var fe *FittingFailedError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, StageCancelled, fe.Stage)
	assert.Zero(t, e.FitCount())
}

func TestEstimateRatesInvalidFidelity(t *testing.T) {
	e := NewRateEstimator(DefaultPoddsConfig(), nil)
	_, err := e.EstimateRates(context.Background(), e2eHome(), e2eAway(), nil, nil, Fidelity{Name: "broken"})
	var fe *FittingFailedError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, StageSetup, fe.Stage)
}

func TestSplitRHat(t *testing.T) {
	same := []float64{1, 2, 3, 4, 1, 2, 3, 4}
	assert.Less(t, splitRHat([][]float64{same, same}), 1.05)

	apart := [][]float64{{1, 1.1, 0.9, 1, 1.05, 0.95}, {5, 5.1, 4.9, 5, 5.05, 4.95}}
	assert.Greater(t, splitRHat(apart), 2.0)

	assert.Equal(t, 1.0, splitRHat([][]float64{{2, 2, 2, 2}}))
}
