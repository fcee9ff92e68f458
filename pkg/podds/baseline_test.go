package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoissonBaselineSymmetric(t *testing.T) {
	b := NewPoissonBaseline(1.4, 1.4, DefaultPoddsConfig())
	assert.InDelta(t, 100, b.HomeWinPct+b.DrawPct+b.AwayWinPct, 1e-9)
	assert.InDelta(t, b.HomeWinPct, b.AwayWinPct, 1e-9)
	assert.Equal(t, 1, b.PredictedHomeGoals)
	assert.Equal(t, 1, b.PredictedAwayGoals)
	assert.Greater(t, b.Over1p5Pct, b.Over2p5Pct)
}

func TestPoissonBaselineFavourite(t *testing.T) {
	b := NewPoissonBaseline(2.5, 0.5, DefaultPoddsConfig())
	assert.Greater(t, b.HomeWinPct, 70.0)
	assert.Less(t, b.AwayWinPct, 10.0)
	assert.Equal(t, 2, b.PredictedHomeGoals)
	assert.Equal(t, 0, b.PredictedAwayGoals)
}

func TestPoissonBaselineZeroRate(t *testing.T) {
	b := NewPoissonBaseline(0, 0, DefaultPoddsConfig())
	assert.InDelta(t, 100, b.DrawPct, 1e-9)
	assert.Zero(t, b.Over1p5Pct)
}
