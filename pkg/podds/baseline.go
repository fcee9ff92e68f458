package podds

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// baselineMaxGoals bounds the closed form score matrix. Mass beyond it is
// renormalised away.
const baselineMaxGoals = 10

// PoissonBaseline is the closed form outcome of two independent Poisson
// scorers at fixed expected goals. It sits next to the simulated summary as a
// sanity check; a large gap between the two points at a bad posterior.
type PoissonBaseline struct {
	HomeExpectedGoals  float64 `json:"home_xg"`
	AwayExpectedGoals  float64 `json:"away_xg"`
	HomeWinPct         float64 `json:"home_win_pct"`
	DrawPct            float64 `json:"draw_pct"`
	AwayWinPct         float64 `json:"away_win_pct"`
	Over1p5Pct         float64 `json:"over_1p5_pct"`
	Over2p5Pct         float64 `json:"over_2p5_pct"`
	PredictedHomeGoals int     `json:"predicted_home_goals"`
	PredictedAwayGoals int     `json:"predicted_away_goals"`
}

// NewPoissonBaseline builds the outer product of the two goal distributions
// and reads the outcome triangles off it.
func NewPoissonBaseline(homeXG, awayXG float64, cfg *PoddsConfig) *PoissonBaseline {
	b := &PoissonBaseline{HomeExpectedGoals: homeXG, AwayExpectedGoals: awayXG}
	homeProbs := goalProbabilities(homeXG)
	awayProbs := goalProbabilities(awayXG)

	var total, bestP float64
	matrix := make([][]float64, len(homeProbs))
	for i := range homeProbs {
		matrix[i] = make([]float64, len(awayProbs))
		for j := range awayProbs {
			matrix[i][j] = homeProbs[i] * awayProbs[j]
			total += matrix[i][j]
		}
	}
	if total <= 0 {
		return b
	}

	for i := range matrix {
		for j := range matrix[i] {
			p := matrix[i][j] / total
			switch {
			case i > j:
				b.HomeWinPct += p
			case i == j:
				b.DrawPct += p
			default:
				b.AwayWinPct += p
			}
			goals := float64(i + j)
			if goals > cfg.Over1p5GoalsThreshold {
				b.Over1p5Pct += p
			}
			if goals > cfg.Over2p5GoalsThreshold {
				b.Over2p5Pct += p
			}
			if p > bestP {
				bestP = p
				b.PredictedHomeGoals, b.PredictedAwayGoals = i, j
			}
		}
	}
	b.HomeWinPct *= 100
	b.DrawPct *= 100
	b.AwayWinPct *= 100
	b.Over1p5Pct *= 100
	b.Over2p5Pct *= 100
	return b
}

func goalProbabilities(lambda float64) []float64 {
	probs := make([]float64, baselineMaxGoals+1)
	if lambda <= 0 || math.IsNaN(lambda) {
		probs[0] = 1
		return probs
	}
	pois := distuv.Poisson{Lambda: lambda}
	for k := range probs {
		probs[k] = pois.Prob(float64(k))
	}
	return probs
}
