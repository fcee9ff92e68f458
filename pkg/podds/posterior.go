package podds

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Rate indices, in the order the estimator samples them
const (
	HomeAttack = iota
	HomeDefense
	AwayAttack
	AwayDefense
	NumRates
)

var RateNames = [NumRates]string{"home_attack", "home_defense", "away_attack", "away_defense"}

// Rates is one coherent posterior draw.
type Rates struct {
	HomeAttack  float64 `json:"home_attack"`
	HomeDefense float64 `json:"home_defense"`
	AwayAttack  float64 `json:"away_attack"`
	AwayDefense float64 `json:"away_defense"`
}

// Diagnostics records how the sampler behaved, per rate.
type Diagnostics struct {
	Acceptance [NumRates]float64 `json:"acceptance"`
	RHat       [NumRates]float64 `json:"rhat"`
}

// Posterior is a joint empirical distribution over the four rates.
// Index i across all four slices is one draw; slices must never be resampled
// independently. Posteriors are shared through the cache and must not be mutated.
type Posterior struct {
	HomeAttack  []float64   `json:"home_attack"`
	HomeDefense []float64   `json:"home_defense"`
	AwayAttack  []float64   `json:"away_attack"`
	AwayDefense []float64   `json:"away_defense"`
	Fidelity    Fidelity    `json:"fidelity"`
	Seed        uint64      `json:"seed"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

func newPosterior(size int, fid Fidelity, seed uint64) *Posterior {
	return &Posterior{
		HomeAttack:  make([]float64, 0, size),
		HomeDefense: make([]float64, 0, size),
		AwayAttack:  make([]float64, 0, size),
		AwayDefense: make([]float64, 0, size),
		Fidelity:    fid,
		Seed:        seed,
	}
}

func (p *Posterior) append(r [NumRates]float64) {
	p.HomeAttack = append(p.HomeAttack, r[HomeAttack])
	p.HomeDefense = append(p.HomeDefense, r[HomeDefense])
	p.AwayAttack = append(p.AwayAttack, r[AwayAttack])
	p.AwayDefense = append(p.AwayDefense, r[AwayDefense])
}

// Len is the number of joint draws.
func (p *Posterior) Len() int {
	if p == nil {
		return 0
	}
	return len(p.HomeAttack)
}

// Draw returns the rates at index i.
func (p *Posterior) Draw(i int) Rates {
	return Rates{
		HomeAttack:  p.HomeAttack[i],
		HomeDefense: p.HomeDefense[i],
		AwayAttack:  p.AwayAttack[i],
		AwayDefense: p.AwayDefense[i],
	}
}

// Series returns the samples of one rate by index.
func (p *Posterior) Series(rate int) []float64 {
	switch rate {
	case HomeAttack:
		return p.HomeAttack
	case HomeDefense:
		return p.HomeDefense
	case AwayAttack:
		return p.AwayAttack
	case AwayDefense:
		return p.AwayDefense
	}
	panic(fmt.Sprintf("podds: rate index %d out of range", rate))
}

// Validate checks the structural invariants: equal lengths and every value
// finite and strictly inside (lower, upper).
func (p *Posterior) Validate(lower, upper float64) error {
	if p.Len() == 0 {
		return ErrEmptyPosterior
	}
	n := p.Len()
	for r := range NumRates {
		s := p.Series(r)
		if len(s) != n {
			return fmt.Errorf("%s has %d draws, expected %d", RateNames[r], len(s), n)
		}
		for i, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%s draw %d is not finite", RateNames[r], i)
			}
			if v <= lower || v >= upper {
				return fmt.Errorf("%s draw %d = %f outside (%f, %f)", RateNames[r], i, v, lower, upper)
			}
		}
	}
	return nil
}

// RateSummary describes the marginal posterior of one rate.
type RateSummary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Q05  float64 `json:"q05"`
	Q50  float64 `json:"q50"`
	Q95  float64 `json:"q95"`
	RHat float64 `json:"rhat"`
}

type PosteriorSummary struct {
	HomeAttack  RateSummary `json:"home_attack"`
	HomeDefense RateSummary `json:"home_defense"`
	AwayAttack  RateSummary `json:"away_attack"`
	AwayDefense RateSummary `json:"away_defense"`
	Draws       int         `json:"draws"`
	Fidelity    string      `json:"fidelity"`
}

func (p *Posterior) Summary() PosteriorSummary {
	var out [NumRates]RateSummary
	for r := range NumRates {
		sorted := slices.Clone(p.Series(r))
		slices.Sort(sorted)
		mean, std := stat.MeanStdDev(sorted, nil)
		out[r] = RateSummary{
			Mean: mean,
			Std:  std,
			Q05:  stat.Quantile(0.05, stat.Empirical, sorted, nil),
			Q50:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
			Q95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
			RHat: p.Diagnostics.RHat[r],
		}
	}
	return PosteriorSummary{
		HomeAttack:  out[HomeAttack],
		HomeDefense: out[HomeDefense],
		AwayAttack:  out[AwayAttack],
		AwayDefense: out[AwayDefense],
		Draws:       p.Len(),
		Fidelity:    p.Fidelity.Name,
	}
}

// splitRHat computes the split potential scale reduction factor for one
// parameter given its per chain draws.
func splitRHat(chains [][]float64) float64 {
	var halves [][]float64
	for _, c := range chains {
		h := len(c) / 2
		if h < 2 {
			return math.NaN()
		}
		halves = append(halves, c[:h], c[len(c)-h:])
	}
	n := float64(len(halves[0]))
	means := make([]float64, len(halves))
	vars := make([]float64, len(halves))
	for i, h := range halves {
		means[i], vars[i] = stat.MeanVariance(h[:int(n)], nil)
	}
	w := stat.Mean(vars, nil)
	b := n * stat.Variance(means, nil)
	if w == 0 {
		if b == 0 {
			return 1
		}
		return math.Inf(1)
	}
	varHat := (n-1)/n*w + b/n
	return math.Sqrt(varHat / w)
}
