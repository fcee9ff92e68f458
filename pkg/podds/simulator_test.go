package podds

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveRates(t *testing.T) {
	sim := NewMatchSimulator(DefaultPoddsConfig())

	home, away := sim.EffectiveRates(Rates{HomeAttack: 2.6, HomeDefense: 0.65, AwayAttack: 1.3, AwayDefense: 1.0})
	assert.InDelta(t, 2.0, home, 1e-12)
	assert.InDelta(t, 0.65, away, 1e-12)

	home, away = sim.EffectiveRates(Rates{HomeAttack: 0.05, HomeDefense: 0.05, AwayAttack: 0.05, AwayDefense: 0.05})
	assert.Equal(t, 0.1, home)
	assert.Equal(t, 0.1, away)
}

func TestSimulateConservation(t *testing.T) {
	sim := NewMatchSimulator(DefaultPoddsConfig())
	rng := rand.New(rand.NewPCG(3, 0))
	for range 500 {
		m := sim.Simulate(Rates{HomeAttack: 2.5, HomeDefense: 1.2, AwayAttack: 1.8, AwayDefense: 1.4}, rng)
		require.NoError(t, m.Validate())
		assert.Equal(t, m.HomeGoals, m.HomeHT+m.HomeSecondHalf())
		assert.Equal(t, m.AwayGoals, m.AwayHT+m.AwaySecondHalf())
		assert.Equal(t, m.HomeTimeline.Sum(HalfTimeMinute, MatchMinutes), m.HomeSecondHalf())
		assert.Equal(t, m.AwayTimeline.Sum(HalfTimeMinute, MatchMinutes), m.AwaySecondHalf())
	}
}

func TestSimulateMeanGoals(t *testing.T) {
	sim := NewMatchSimulator(DefaultPoddsConfig())
	rng := rand.New(rand.NewPCG(11, 0))
	r := Rates{HomeAttack: 2.6, HomeDefense: 1.3, AwayAttack: 1.3, AwayDefense: 1.0}
	wantHome, wantAway := sim.EffectiveRates(r)

	const n = 4000
	var home, away int
	for range n {
		m := sim.Simulate(r, rng)
		home += m.HomeGoals
		away += m.AwayGoals
	}
	assert.InDelta(t, wantHome, float64(home)/n, 0.1)
	assert.InDelta(t, wantAway, float64(away)/n, 0.1)
}

func TestMatchResultValidateDetectsDrift(t *testing.T) {
	sim := NewMatchSimulator(DefaultPoddsConfig())
	m := sim.Simulate(Rates{HomeAttack: 3, HomeDefense: 1, AwayAttack: 3, AwayDefense: 1}, rand.New(rand.NewPCG(1, 1)))
	m.HomeGoals++
	assert.Error(t, m.Validate())

	m = MatchResult{HomeTimeline: make(Timeline, 10), AwayTimeline: make(Timeline, MatchMinutes)}
	assert.Error(t, m.Validate())
}

func TestTimelineJSON(t *testing.T) {
	tl := Timeline{0, 1, 0, 2}
	data, err := json.Marshal(tl)
	require.NoError(t, err)
	assert.JSONEq(t, `[0,1,0,2]`, string(data))

	var back Timeline
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tl, back)
	assert.Error(t, json.Unmarshal([]byte(`[300]`), &back))
}
