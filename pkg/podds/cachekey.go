package podds

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// keyPrecision is the number of decimals numeric inputs are rounded to.
const keyPrecision = 1000

type statsKey struct {
	AvgGoalsFor, AvgGoalsAgainst int64
	StdGoalsFor, StdGoalsAgainst int64
}

// fitSettings are the config values that shape a fit, rounded like the stats.
type fitSettings struct {
	RateLowerBound, RateUpperBound int64
	MinStd, MaxRHat                int64
}

// CacheKey identifies one posterior fit. It is comparable and can be used
// directly as a map key; String gives a stable form for persistent stores.
type CacheKey struct {
	Home     statsKey
	Away     statsKey
	ObsHome  string
	ObsAway  string
	Fidelity Fidelity
	Seed     uint64
	Settings fitSettings
}

func roundKey(v float64) int64 {
	return int64(math.Round(v * keyPrecision))
}

func newStatsKey(ts *TeamStats) statsKey {
	return statsKey{
		AvgGoalsFor:     roundKey(ts.AvgGoalsFor),
		AvgGoalsAgainst: roundKey(ts.AvgGoalsAgainst),
		StdGoalsFor:     roundKey(ts.StdGoalsFor),
		StdGoalsAgainst: roundKey(ts.StdGoalsAgainst),
	}
}

func joinGoals(goals []int) string {
	parts := make([]string, len(goals))
	for i, g := range goals {
		parts[i] = strconv.Itoa(g)
	}
	return strings.Join(parts, ",")
}

// NewCacheKey builds the key for already normalised stats.
func NewCacheKey(home, away *TeamStats, obsHome, obsAway []int, fid Fidelity, seed uint64) CacheKey {
	return CacheKey{
		Home:     newStatsKey(home),
		Away:     newStatsKey(away),
		ObsHome:  joinGoals(obsHome),
		ObsAway:  joinGoals(obsAway),
		Fidelity: fid,
		Seed:     seed,
	}
}

// WithSettings returns a copy of the key that also covers the configured
// prior bounds, std floor and convergence limit, so posteriors fitted under
// other settings are never served from the cache or the store.
func (k CacheKey) WithSettings(cfg *PoddsConfig) CacheKey {
	k.Settings = fitSettings{
		RateLowerBound: roundKey(cfg.RateLowerBound),
		RateUpperBound: roundKey(cfg.RateUpperBound),
		MinStd:         roundKey(cfg.MinStd),
		MaxRHat:        roundKey(cfg.MaxRHat),
	}
	return k
}

func (s statsKey) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", s.AvgGoalsFor, s.AvgGoalsAgainst, s.StdGoalsFor, s.StdGoalsAgainst)
}

func (k CacheKey) String() string {
	return fmt.Sprintf("h=%s;a=%s;oh=%s;oa=%s;f=%s:%d/%d/%d;s=%d;c=%d/%d/%d/%d",
		k.Home, k.Away, k.ObsHome, k.ObsAway,
		k.Fidelity.Name, k.Fidelity.Samples, k.Fidelity.Warmup, k.Fidelity.Chains, k.Seed,
		k.Settings.RateLowerBound, k.Settings.RateUpperBound, k.Settings.MinStd, k.Settings.MaxRHat)
}
