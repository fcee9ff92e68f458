package podds

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ScorelineFrequency is how often one scoreline occurred.
type ScorelineFrequency struct {
	Home  int     `json:"home"`
	Away  int     `json:"away"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

func (s ScorelineFrequency) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// GoalsFrequency is how often a given number of goals occurred.
type GoalsFrequency struct {
	Goals int     `json:"goals"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

// AnalyticsSummary is derived, read only statistics over a population.
// Every percentage is count / Simulations * 100 and every MCSE is in
// percentage points.
type AnalyticsSummary struct {
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	Simulations int    `json:"simulations"`

	HomeWinPct  float64 `json:"home_win_pct"`
	DrawPct     float64 `json:"draw_pct"`
	AwayWinPct  float64 `json:"away_win_pct"`
	HomeWinMCSE float64 `json:"home_win_mcse"`
	DrawMCSE    float64 `json:"draw_mcse"`
	AwayWinMCSE float64 `json:"away_win_mcse"`

	HomeExpectedGoals   float64 `json:"home_xg"`
	AwayExpectedGoals   float64 `json:"away_xg"`
	HomeExpectedGoalsSE float64 `json:"home_xg_se"`
	AwayExpectedGoalsSE float64 `json:"away_xg_se"`

	Favourite string  `json:"favourite"`
	Underdog  string  `json:"underdog"`
	UpsetPct  float64 `json:"upset_pct"`
	UpsetMCSE float64 `json:"upset_mcse"`

	TopScorelines      []ScorelineFrequency `json:"top_scorelines"`
	HalfTimeScorelines []ScorelineFrequency `json:"halftime_scorelines"`
	Scorelines         []ScorelineFrequency `json:"scorelines"`
	SecondHalfGoals    []GoalsFrequency     `json:"second_half_goals"`

	Over1p5Pct   float64 `json:"over_1p5_pct"`
	Over2p5Pct   float64 `json:"over_2p5_pct"`
	BothScorePct float64 `json:"btts_pct"`

	// Mean cumulative goals after each minute, index 0 is minute 1.
	HomeTimeline []float64 `json:"home_timeline"`
	AwayTimeline []float64 `json:"away_timeline"`
}

// MostLikelyScore is the most frequent full time scoreline.
func (s *AnalyticsSummary) MostLikelyScore() ScorelineFrequency {
	if len(s.TopScorelines) == 0 {
		return ScorelineFrequency{}
	}
	return s.TopScorelines[0]
}

// MCSE is the Monte Carlo standard error of a proportion p estimated from n
// samples, as a percentage.
func MCSE(p float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Sqrt(p*(1-p)/float64(n)) * 100
}

// AnalyticsAggregator reduces a population to an AnalyticsSummary.
type AnalyticsAggregator struct {
	TopScorelines     int
	TopHalfTimeScores int
	Over1p5           float64
	Over2p5           float64
}

func NewAnalyticsAggregator(cfg *PoddsConfig) AnalyticsAggregator {
	return AnalyticsAggregator{
		TopScorelines:     cfg.TopScorelines,
		TopHalfTimeScores: cfg.TopHalfTimeScores,
		Over1p5:           cfg.Over1p5GoalsThreshold,
		Over2p5:           cfg.Over2p5GoalsThreshold,
	}
}

type scoreline struct{ home, away int }

// Summarize computes the outcome probabilities, scoreline tables and
// expected goals for the population.
func (a AnalyticsAggregator) Summarize(pop *Population, homeLabel, awayLabel string) (*AnalyticsSummary, error) {
	n := pop.Len()
	if n == 0 {
		return nil, ErrEmptyPopulation
	}
	nf := float64(n)

	var homeWins, draws, awayWins, over1p5, over2p5, btts int
	fullTime := make(map[scoreline]int)
	halfTime := make(map[scoreline]int)
	secondHalf := make(map[int]int)
	homeGoals := make([]float64, n)
	awayGoals := make([]float64, n)
	homeCum := make([]float64, MatchMinutes)
	awayCum := make([]float64, MatchMinutes)
	buf := make([]float64, MatchMinutes)

	for i := range pop.Results {
		m := &pop.Results[i]
		switch {
		case m.HomeGoals > m.AwayGoals:
			homeWins++
		case m.HomeGoals < m.AwayGoals:
			awayWins++
		default:
			draws++
		}
		total := float64(m.TotalGoals())
		if total > a.Over1p5 {
			over1p5++
		}
		if total > a.Over2p5 {
			over2p5++
		}
		if m.HomeGoals > 0 && m.AwayGoals > 0 {
			btts++
		}
		fullTime[scoreline{m.HomeGoals, m.AwayGoals}]++
		halfTime[scoreline{m.HomeHT, m.AwayHT}]++
		secondHalf[m.HomeSecondHalf()+m.AwaySecondHalf()]++
		homeGoals[i] = float64(m.HomeGoals)
		awayGoals[i] = float64(m.AwayGoals)
		floats.Add(homeCum, cumulative(buf, m.HomeTimeline))
		floats.Add(awayCum, cumulative(buf, m.AwayTimeline))
	}
	floats.Scale(1/nf, homeCum)
	floats.Scale(1/nf, awayCum)

	s := &AnalyticsSummary{
		HomeTeam:     homeLabel,
		AwayTeam:     awayLabel,
		Simulations:  n,
		HomeWinPct:   float64(homeWins) / nf * 100,
		DrawPct:      float64(draws) / nf * 100,
		AwayWinPct:   float64(awayWins) / nf * 100,
		HomeWinMCSE:  MCSE(float64(homeWins)/nf, n),
		DrawMCSE:     MCSE(float64(draws)/nf, n),
		AwayWinMCSE:  MCSE(float64(awayWins)/nf, n),
		Over1p5Pct:   float64(over1p5) / nf * 100,
		Over2p5Pct:   float64(over2p5) / nf * 100,
		BothScorePct: float64(btts) / nf * 100,
		HomeTimeline: homeCum,
		AwayTimeline: awayCum,
	}

	s.HomeExpectedGoals = stat.Mean(homeGoals, nil)
	s.AwayExpectedGoals = stat.Mean(awayGoals, nil)
	if n > 1 {
		s.HomeExpectedGoalsSE = stat.StdDev(homeGoals, nil) / math.Sqrt(nf)
		s.AwayExpectedGoalsSE = stat.StdDev(awayGoals, nil) / math.Sqrt(nf)
	}

	upsets := awayWins
	s.Favourite, s.Underdog = homeLabel, awayLabel
	if s.HomeExpectedGoals < s.AwayExpectedGoals {
		upsets = homeWins
		s.Favourite, s.Underdog = awayLabel, homeLabel
	}
	s.UpsetPct = float64(upsets) / nf * 100
	s.UpsetMCSE = MCSE(float64(upsets)/nf, n)

	s.Scorelines = rankScorelines(fullTime, n)
	s.TopScorelines = s.Scorelines[:min(a.TopScorelines, len(s.Scorelines))]
	ht := rankScorelines(halfTime, n)
	s.HalfTimeScorelines = ht[:min(a.TopHalfTimeScores, len(ht))]

	for goals, count := range secondHalf {
		s.SecondHalfGoals = append(s.SecondHalfGoals, GoalsFrequency{Goals: goals, Count: count, Pct: float64(count) / nf * 100})
	}
	slices.SortFunc(s.SecondHalfGoals, func(x, y GoalsFrequency) int { return x.Goals - y.Goals })
	return s, nil
}

// rankScorelines orders by count descending, then home goals, then away goals.
func rankScorelines(counts map[scoreline]int, n int) []ScorelineFrequency {
	out := make([]ScorelineFrequency, 0, len(counts))
	for sl, c := range counts {
		out = append(out, ScorelineFrequency{Home: sl.home, Away: sl.away, Count: c, Pct: float64(c) / float64(n) * 100})
	}
	slices.SortFunc(out, func(x, y ScorelineFrequency) int {
		if x.Count != y.Count {
			return y.Count - x.Count
		}
		if x.Home != y.Home {
			return x.Home - y.Home
		}
		return x.Away - y.Away
	})
	return out
}

func cumulative(dst []float64, t Timeline) []float64 {
	for i, g := range t {
		dst[i] = float64(g)
	}
	return floats.CumSum(dst, dst)
}
