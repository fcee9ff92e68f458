package podds

func e2eHome() *TeamStats {
	return &TeamStats{
		Name:            "Home FC",
		AvgGoalsFor:     2.0,
		AvgGoalsAgainst: 0.6,
		StdGoalsFor:     1.3,
		StdGoalsAgainst: 0.7,
		RecentGoalsFor:  []int{3, 1, 2, 3, 1, 2, 1},
	}
}

func e2eAway() *TeamStats {
	return &TeamStats{
		Name:            "Away FC",
		AvgGoalsFor:     1.3,
		AvgGoalsAgainst: 1.0,
		StdGoalsFor:     1.0,
		StdGoalsAgainst: 0.9,
		RecentGoalsFor:  []int{1, 2, 0, 1, 0, 2, 1},
	}
}

// fixedPosterior repeats the same draw n times.
func fixedPosterior(n int, r Rates) *Posterior {
	p := newPosterior(n, QuickFidelity, 1)
	for range n {
		p.append([NumRates]float64{r.HomeAttack, r.HomeDefense, r.AwayAttack, r.AwayDefense})
	}
	return p
}

// spreadPosterior holds a handful of distinct draws.
func spreadPosterior() *Posterior {
	p := newPosterior(4, QuickFidelity, 1)
	p.append([NumRates]float64{1.8, 0.7, 1.1, 1.0})
	p.append([NumRates]float64{2.2, 0.5, 0.9, 1.1})
	p.append([NumRates]float64{1.5, 0.9, 1.4, 0.8})
	p.append([NumRates]float64{2.0, 0.6, 1.2, 1.0})
	return p
}
