package podds

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TeamStats is the model input for one side of a fixture.
// It is treated as immutable once built; every transform returns a copy.
type TeamStats struct {
	Name               string  `json:"name,omitempty"`
	AvgGoalsFor        float64 `json:"avg_gf"`
	AvgGoalsAgainst    float64 `json:"avg_ga"`
	StdGoalsFor        float64 `json:"std_gf"`
	StdGoalsAgainst    float64 `json:"std_ga"`
	Matches            int     `json:"matches"`
	RecentGoalsFor     []int   `json:"recent_gf,omitempty"`
	RecentGoalsAgainst []int   `json:"recent_ga,omitempty"`
}

// NewTeamStats derives averages and population standard deviations from
// per match goal counts. Empty sequences fall back to the config defaults.
func NewTeamStats(name string, goalsFor, goalsAgainst []int, cfg *PoddsConfig) TeamStats {
	ts := TeamStats{
		Name:               name,
		Matches:            len(goalsFor),
		RecentGoalsFor:     append([]int(nil), goalsFor...),
		RecentGoalsAgainst: append([]int(nil), goalsAgainst...),
	}
	ts.AvgGoalsFor, ts.StdGoalsFor = meanStd(goalsFor, cfg)
	ts.AvgGoalsAgainst, ts.StdGoalsAgainst = meanStd(goalsAgainst, cfg)
	return ts
}

func meanStd(goals []int, cfg *PoddsConfig) (float64, float64) {
	if len(goals) == 0 {
		return cfg.DefaultGoalsAvg, cfg.DefaultGoalsStd
	}
	xs := make([]float64, len(goals))
	for i, g := range goals {
		xs[i] = float64(g)
	}
	mean, variance := stat.PopMeanVariance(xs, nil)
	return mean, math.Sqrt(variance)
}

// IsEmpty reports whether the stats carry no information at all.
func (ts *TeamStats) IsEmpty() bool {
	if ts == nil {
		return true
	}
	return ts.AvgGoalsFor == 0 && ts.AvgGoalsAgainst == 0 &&
		ts.StdGoalsFor == 0 && ts.StdGoalsAgainst == 0 &&
		ts.Matches == 0 && len(ts.RecentGoalsFor) == 0 && len(ts.RecentGoalsAgainst) == 0
}

// SampleSize is the match count used to weigh the team against the global mean.
func (ts *TeamStats) SampleSize() int {
	if ts.Matches > 0 {
		return ts.Matches
	}
	return len(ts.RecentGoalsFor)
}

// Normalized returns a copy ready for the estimator: absent stats become the
// defaults, non-finite or negative values are replaced and std is floored.
func (ts *TeamStats) Normalized(cfg *PoddsConfig) TeamStats {
	if ts.IsEmpty() {
		out := TeamStats{
			AvgGoalsFor:     cfg.DefaultGoalsAvg,
			AvgGoalsAgainst: cfg.DefaultGoalsAvg,
			StdGoalsFor:     cfg.DefaultGoalsStd,
			StdGoalsAgainst: cfg.DefaultGoalsStd,
		}
		if ts != nil {
			out.Name = ts.Name
		}
		out.StdGoalsFor = math.Max(out.StdGoalsFor, cfg.MinStd)
		out.StdGoalsAgainst = math.Max(out.StdGoalsAgainst, cfg.MinStd)
		return out
	}
	out := *ts
	out.RecentGoalsFor = validGoals(ts.RecentGoalsFor)
	out.RecentGoalsAgainst = validGoals(ts.RecentGoalsAgainst)
	out.AvgGoalsFor = sanitize(out.AvgGoalsFor, cfg.DefaultGoalsAvg)
	out.AvgGoalsAgainst = sanitize(out.AvgGoalsAgainst, cfg.DefaultGoalsAvg)
	out.StdGoalsFor = math.Max(sanitize(out.StdGoalsFor, cfg.DefaultGoalsStd), cfg.MinStd)
	out.StdGoalsAgainst = math.Max(sanitize(out.StdGoalsAgainst, cfg.DefaultGoalsStd), cfg.MinStd)
	return out
}

func sanitize(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fallback
	}
	return v
}

// validGoals drops negative counts, which carry no likelihood evidence.
func validGoals(goals []int) []int {
	out := make([]int, 0, len(goals))
	for _, g := range goals {
		if g >= 0 {
			out = append(out, g)
		}
	}
	return out
}
