package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outcome(h, d, a float64, predH, predA, actH, actA int) PredictionOutcome {
	return PredictionOutcome{
		HomeWinPct: h, DrawPct: d, AwayWinPct: a,
		ExpectedHomeGoals: float64(predH) + 0.2, ExpectedAwayGoals: float64(predA) + 0.2,
		PredictedHomeGoals: predH, PredictedAwayGoals: predA,
		ActualHomeGoals: actH, ActualAwayGoals: actA,
	}
}

func TestEvaluatePrediction(t *testing.T) {
	acc := EvaluatePrediction(outcome(60, 25, 15, 2, 1, 2, 1))
	require.NotNil(t, acc)
	assert.True(t, acc.ResultCorrect)
	assert.True(t, acc.ExactScoreCorrect)
	assert.Equal(t, ResultHome, acc.ActualResult)
	assert.Zero(t, acc.GoalDifferenceError)
	assert.InDelta(t, 0.2, acc.HomeGoalError, 1e-12)
	assert.InDelta(t, 0.4*0.4+0.25*0.25+0.15*0.15, acc.BrierScore, 1e-12)

	acc = EvaluatePrediction(outcome(60, 25, 15, 1, 0, 0, 3))
	require.NotNil(t, acc)
	assert.False(t, acc.ResultCorrect)
	assert.Equal(t, ResultAway, acc.ActualResult)
	assert.Equal(t, 4, acc.GoalDifferenceError)
	assert.Equal(t, 2, acc.TotalGoalsError)

	assert.Nil(t, EvaluatePrediction(outcome(60, 25, 15, 1, 0, -1, -1)))
}

func TestPredictedResultTieBreaks(t *testing.T) {
	o := outcome(40, 40, 20, 1, 1, 0, 0)
	assert.Equal(t, ResultDraw, o.predictedResult())
	o = outcome(30, 20, 50, 0, 1, 0, 0)
	assert.Equal(t, ResultAway, o.predictedResult())
}

func TestEvaluateAll(t *testing.T) {
	agg := EvaluateAll([]PredictionOutcome{
		outcome(60, 25, 15, 2, 1, 2, 1),
		outcome(60, 25, 15, 1, 0, 0, 3),
		outcome(60, 25, 15, 1, 0, -1, -1),
	})
	require.NotNil(t, agg)
	assert.Equal(t, 2, agg.TotalMatches)
	assert.InDelta(t, 50.0, agg.ResultAccuracy, 1e-12)
	assert.InDelta(t, 50.0, agg.ExactScoreAccuracy, 1e-12)
	assert.InDelta(t, 2.0, agg.AverageGoalDiffError, 1e-12)

	assert.Nil(t, EvaluateAll(nil))
}

func TestPlayedOnReturnedOutcome(t *testing.T) {
	assert.True(t, outcome(50, 25, 25, 1, 0, 1, 0).Played())
	assert.False(t, outcome(50, 25, 25, 1, 0, -1, -1).Played())
	assert.False(t, (&Prediction{Summary: &AnalyticsSummary{}}).Outcome().Played())
}
