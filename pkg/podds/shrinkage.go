package podds

// GlobalPriors is the league wide mean each team is shrunk toward.
type GlobalPriors struct {
	Attack  float64 `json:"attack"`
	Defense float64 `json:"defense"`
}

// DefaultGlobalPriors returns the configured fallback priors.
func DefaultGlobalPriors(cfg *PoddsConfig) GlobalPriors {
	return GlobalPriors{Attack: cfg.DefaultGlobalAttack, Defense: cfg.DefaultGlobalDefense}
}

// ComputeGlobalPriors averages goals for and against across every non empty team.
func ComputeGlobalPriors(teams []TeamStats, cfg *PoddsConfig) GlobalPriors {
	var attack, defense float64
	n := 0
	for i := range teams {
		if teams[i].IsEmpty() {
			continue
		}
		attack += teams[i].AvgGoalsFor
		defense += teams[i].AvgGoalsAgainst
		n++
	}
	if n == 0 {
		return DefaultGlobalPriors(cfg)
	}
	return GlobalPriors{Attack: attack / float64(n), Defense: defense / float64(n)}
}

// Shrink blends a team's averages toward the global priors, weighted by how
// many matches support them:
//
//	avg' = (n*avg + k*global) / (n + k)
//	std' = std*n/(n + k) + minStd*k/(n + k)
//
// Stats with no sample size were supplied by hand and are returned unchanged,
// as are empty stats and k <= 0. Observed sequences are never altered.
func Shrink(ts *TeamStats, priors GlobalPriors, k float64, minStd float64) *TeamStats {
	if ts == nil || ts.IsEmpty() || k <= 0 {
		return ts
	}
	n := float64(ts.SampleSize())
	if n == 0 {
		return ts
	}
	w := n / (n + k)
	out := *ts
	out.AvgGoalsFor = w*ts.AvgGoalsFor + (1-w)*priors.Attack
	out.AvgGoalsAgainst = w*ts.AvgGoalsAgainst + (1-w)*priors.Defense
	out.StdGoalsFor = ts.StdGoalsFor*w + minStd*(1-w)
	out.StdGoalsAgainst = ts.StdGoalsAgainst*w + minStd*(1-w)
	return &out
}
