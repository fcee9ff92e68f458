package podds

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// truncatedNormal is a normal distribution restricted to the open interval (Lower, Upper).
type truncatedNormal struct {
	Mu, Sigma    float64
	Lower, Upper float64
}

// LogProb is the log density up to the truncation constant, which cancels
// in every Metropolis ratio the estimator forms.
func (t truncatedNormal) LogProb(x float64) float64 {
	if !(x > t.Lower && x < t.Upper) {
		return math.Inf(-1)
	}
	return distuv.Normal{Mu: t.Mu, Sigma: t.Sigma}.LogProb(x)
}

// Rand draws by rejection. When the mass inside the bounds is too small for
// rejection to succeed the nearest interior point to Mu is returned.
func (t truncatedNormal) Rand(rng *rand.Rand) float64 {
	n := distuv.Normal{Mu: t.Mu, Sigma: t.Sigma, Src: rng}
	for range 1000 {
		if x := n.Rand(); x > t.Lower && x < t.Upper {
			return x
		}
	}
	eps := (t.Upper - t.Lower) * 1e-3
	return math.Min(math.Max(t.Mu, t.Lower+eps), t.Upper-eps)
}
