package podds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// result builds a match whose goals all fall in the given minutes.
func result(homeMinutes, awayMinutes []int) MatchResult {
	m := MatchResult{HomeTimeline: make(Timeline, MatchMinutes), AwayTimeline: make(Timeline, MatchMinutes)}
	for _, minute := range homeMinutes {
		m.HomeTimeline[minute]++
		m.HomeGoals++
		if minute < HalfTimeMinute {
			m.HomeHT++
		}
	}
	for _, minute := range awayMinutes {
		m.AwayTimeline[minute]++
		m.AwayGoals++
		if minute < HalfTimeMinute {
			m.AwayHT++
		}
	}
	return m
}

func TestMCSE(t *testing.T) {
	assert.InDelta(t, 0.495, MCSE(0.5, 10200), 0.001)
	assert.InDelta(t, math.Sqrt(0.25/10200)*100, MCSE(0.5, 10200), 1e-12)
	assert.Zero(t, MCSE(0, 100))
	assert.Zero(t, MCSE(1, 100))
	assert.Zero(t, MCSE(0.5, 0))
}

func TestSummarizeKnownPopulation(t *testing.T) {
	pop := &Population{Results: []MatchResult{
		result([]int{10, 50}, []int{70}),  // 2-1, HT 1-0
		result([]int{10, 50}, []int{70}),  // 2-1
		result([]int{20}, []int{}),        // 1-0
		result([]int{}, []int{}),          // 0-0
		result([]int{30}, []int{40}),      // 1-1, HT 1-1
		result([]int{}, []int{5, 60, 88}), // 0-3
	}}
	agg := NewAnalyticsAggregator(DefaultPoddsConfig())
	s, err := agg.Summarize(pop, "Mexico", "Iceland")
	require.NoError(t, err)

	assert.Equal(t, 6, s.Simulations)
	assert.InDelta(t, 50.0, s.HomeWinPct, 1e-9)
	assert.InDelta(t, 100.0/3, s.DrawPct, 1e-9)
	assert.InDelta(t, 100.0/6, s.AwayWinPct, 1e-9)
	assert.InDelta(t, MCSE(0.5, 6), s.HomeWinMCSE, 1e-12)

	assert.InDelta(t, 1.0, s.HomeExpectedGoals, 1e-12)
	assert.InDelta(t, 1.0, s.AwayExpectedGoals, 1e-12)
	// equal expectations make the home side the favourite
	assert.Equal(t, "Mexico", s.Favourite)
	assert.Equal(t, "Iceland", s.Underdog)
	assert.InDelta(t, 100.0/6, s.UpsetPct, 1e-9)

	// count desc, then home asc, then away asc
	require.Len(t, s.TopScorelines, 5)
	assert.Equal(t, 2, s.TopScorelines[0].Count)
	assert.InDelta(t, 100.0/3, s.TopScorelines[0].Pct, 1e-9)
	got := []string{}
	for _, sl := range s.TopScorelines {
		got = append(got, sl.String())
	}
	assert.Equal(t, []string{"2-1", "0-0", "0-3", "1-0", "1-1"}, got)
	assert.Equal(t, "2-1", s.MostLikelyScore().String())

	// half time: 1-0 x3 (two 2-1s and the 1-0), 0-0 x1, 1-1 x1, 0-1 x1
	require.Len(t, s.HalfTimeScorelines, 4)
	assert.Equal(t, ScorelineFrequency{Home: 1, Away: 0, Count: 3, Pct: 50}, s.HalfTimeScorelines[0])

	// second half totals: 2,2,0,0,0,2
	assert.Equal(t, []GoalsFrequency{{Goals: 0, Count: 3, Pct: 50}, {Goals: 2, Count: 3, Pct: 50}}, s.SecondHalfGoals)

	assert.InDelta(t, 4.0/6*100, s.Over1p5Pct, 1e-9)
	assert.InDelta(t, 3.0/6*100, s.Over2p5Pct, 1e-9)
	assert.InDelta(t, 3.0/6*100, s.BothScorePct, 1e-9)

	require.Len(t, s.HomeTimeline, MatchMinutes)
	assert.InDelta(t, s.HomeExpectedGoals, s.HomeTimeline[MatchMinutes-1], 1e-12)
	assert.InDelta(t, s.AwayExpectedGoals, s.AwayTimeline[MatchMinutes-1], 1e-12)
	assert.InDelta(t, 0.0, s.HomeTimeline[9], 1e-12)
	assert.InDelta(t, 2.0/6, s.HomeTimeline[10], 1e-12)
}

func TestSummarizeAwayFavourite(t *testing.T) {
	pop := &Population{Results: []MatchResult{
		result([]int{1}, []int{2, 3}),
		result([]int{1, 2}, []int{}),
		result([]int{}, []int{4, 5}),
	}}
	s, err := NewAnalyticsAggregator(DefaultPoddsConfig()).Summarize(pop, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, "B", s.Favourite)
	assert.InDelta(t, 100.0/3, s.UpsetPct, 1e-9)
	assert.InDelta(t, MCSE(1.0/3, 3), s.UpsetMCSE, 1e-12)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := NewAnalyticsAggregator(DefaultPoddsConfig()).Summarize(&Population{}, "A", "B")
	assert.ErrorIs(t, err, ErrEmptyPopulation)
}

func TestSummarizeProbabilityClosure(t *testing.T) {
	cfg := DefaultPoddsConfig()
	e := NewSimulationEngine(cfg)
	for _, n := range []int{1, 7, 333, 2000} {
		pop, err := e.SimulatePopulation(spreadPosterior(), n, uint64(n), nil)
		require.NoError(t, err)
		s, err := NewAnalyticsAggregator(cfg).Summarize(pop, "H", "A")
		require.NoError(t, err)
		assert.InDelta(t, 100.0, s.HomeWinPct+s.DrawPct+s.AwayWinPct, 1e-6)

		total := 0
		for _, sl := range s.Scorelines {
			total += sl.Count
		}
		assert.Equal(t, n, total)
		assert.LessOrEqual(t, len(s.TopScorelines), cfg.TopScorelines)
		assert.LessOrEqual(t, len(s.HalfTimeScorelines), cfg.TopHalfTimeScores)
	}
}
