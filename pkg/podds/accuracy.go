package podds

import "math"

// PredictionOutcome pairs what was predicted for a fixture with what happened.
// Actual goals of -1 mean the match has not been played.
type PredictionOutcome struct {
	ID                 string  `json:"id"`
	HomeTeam           string  `json:"home_team"`
	AwayTeam           string  `json:"away_team"`
	HomeWinPct         float64 `json:"home_win_pct"`
	DrawPct            float64 `json:"draw_pct"`
	AwayWinPct         float64 `json:"away_win_pct"`
	ExpectedHomeGoals  float64 `json:"home_xg"`
	ExpectedAwayGoals  float64 `json:"away_xg"`
	PredictedHomeGoals int     `json:"predicted_home_goals"`
	PredictedAwayGoals int     `json:"predicted_away_goals"`
	ActualHomeGoals    int     `json:"actual_home_goals"`
	ActualAwayGoals    int     `json:"actual_away_goals"`
}

// Played reports whether the actual score is known.
func (o PredictionOutcome) Played() bool {
	return o.ActualHomeGoals >= 0 && o.ActualAwayGoals >= 0
}

// PredictionAccuracy holds accuracy metrics for a single match prediction
type PredictionAccuracy struct {
	ID                  string  `json:"id"`
	HomeTeam            string  `json:"home_team"`
	AwayTeam            string  `json:"away_team"`
	PredictedResult     string  `json:"predicted_result"`
	ActualResult        string  `json:"actual_result"`
	ResultCorrect       bool    `json:"result_correct"`
	ExactScoreCorrect   bool    `json:"exact_score_correct"`
	GoalDifferenceError int     `json:"goal_difference_error"`
	TotalGoalsError     int     `json:"total_goals_error"`
	HomeGoalError       float64 `json:"home_goal_error"` // |expected - actual|
	AwayGoalError       float64 `json:"away_goal_error"`
	BrierScore          float64 `json:"brier_score"` // three outcome Brier score, 0 is perfect, 2 is worst
}

// AggregateAccuracy holds aggregate prediction accuracy statistics
type AggregateAccuracy struct {
	TotalMatches           int     `json:"total_matches"`
	ResultAccuracy         float64 `json:"result_accuracy"`      // Percentage
	ExactScoreAccuracy     float64 `json:"exact_score_accuracy"` // Percentage
	AverageGoalDiffError   float64 `json:"avg_goal_diff_error"`
	AverageTotalGoalsError float64 `json:"avg_total_goals_error"`
	MeanAbsGoalError       float64 `json:"mean_abs_goal_error"` // per side
	MeanBrierScore         float64 `json:"mean_brier_score"`
}

// Result codes
const (
	ResultHome = "H"
	ResultDraw = "D"
	ResultAway = "A"
)

// matchResult returns "H" for home win, "D" for draw, "A" for away win
func matchResult(homeGoals, awayGoals int) string {
	if homeGoals > awayGoals {
		return ResultHome
	} else if homeGoals < awayGoals {
		return ResultAway
	}
	return ResultDraw
}

// predictedResult is the most probable outcome; ties favour the draw, then home.
func (o PredictionOutcome) predictedResult() string {
	switch {
	case o.DrawPct >= o.HomeWinPct && o.DrawPct >= o.AwayWinPct:
		return ResultDraw
	case o.HomeWinPct >= o.AwayWinPct:
		return ResultHome
	default:
		return ResultAway
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// EvaluatePrediction scores one prediction against the actual result.
// Returns nil when the match has not been played.
func EvaluatePrediction(o PredictionOutcome) *PredictionAccuracy {
	if !o.Played() {
		return nil
	}
	acc := &PredictionAccuracy{
		ID:              o.ID,
		HomeTeam:        o.HomeTeam,
		AwayTeam:        o.AwayTeam,
		PredictedResult: o.predictedResult(),
		ActualResult:    matchResult(o.ActualHomeGoals, o.ActualAwayGoals),
	}
	acc.ResultCorrect = acc.PredictedResult == acc.ActualResult
	acc.ExactScoreCorrect = o.ActualHomeGoals == o.PredictedHomeGoals && o.ActualAwayGoals == o.PredictedAwayGoals

	actualDiff := o.ActualHomeGoals - o.ActualAwayGoals
	predictedDiff := o.PredictedHomeGoals - o.PredictedAwayGoals
	acc.GoalDifferenceError = abs(actualDiff - predictedDiff)
	acc.TotalGoalsError = abs((o.ActualHomeGoals + o.ActualAwayGoals) - (o.PredictedHomeGoals + o.PredictedAwayGoals))

	acc.HomeGoalError = math.Abs(o.ExpectedHomeGoals - float64(o.ActualHomeGoals))
	acc.AwayGoalError = math.Abs(o.ExpectedAwayGoals - float64(o.ActualAwayGoals))

	for _, rp := range []struct {
		result string
		p      float64
	}{
		{ResultHome, o.HomeWinPct / 100},
		{ResultDraw, o.DrawPct / 100},
		{ResultAway, o.AwayWinPct / 100},
	} {
		hit := 0.0
		if rp.result == acc.ActualResult {
			hit = 1
		}
		acc.BrierScore += (rp.p - hit) * (rp.p - hit)
	}
	return acc
}

// EvaluateAll aggregates accuracy over every played prediction. Returns nil
// when none have been played.
func EvaluateAll(outcomes []PredictionOutcome) *AggregateAccuracy {
	var accuracies []*PredictionAccuracy
	for _, o := range outcomes {
		if acc := EvaluatePrediction(o); acc != nil {
			accuracies = append(accuracies, acc)
		}
	}
	if len(accuracies) == 0 {
		return nil
	}

	agg := &AggregateAccuracy{TotalMatches: len(accuracies)}
	var exact, correct, diffErr, totalErr int
	var goalErr, brier float64
	for _, acc := range accuracies {
		if acc.ExactScoreCorrect {
			exact++
		}
		if acc.ResultCorrect {
			correct++
		}
		diffErr += acc.GoalDifferenceError
		totalErr += acc.TotalGoalsError
		goalErr += acc.HomeGoalError + acc.AwayGoalError
		brier += acc.BrierScore
	}
	n := float64(agg.TotalMatches)
	agg.ExactScoreAccuracy = float64(exact) / n * 100
	agg.ResultAccuracy = float64(correct) / n * 100
	agg.AverageGoalDiffError = float64(diffErr) / n
	agg.AverageTotalGoalsError = float64(totalErr) / n
	agg.MeanAbsGoalError = goalErr / (2 * n)
	agg.MeanBrierScore = brier / n
	return agg
}
