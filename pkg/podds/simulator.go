package podds

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Timeline holds the goals scored in each minute of a match.
type Timeline []uint8

// Sum returns the goals scored in minutes [from, to).
func (t Timeline) Sum(from, to int) int {
	n := 0
	for _, g := range t[from:to] {
		n += int(g)
	}
	return n
}

// MarshalJSON writes the timeline as a list of numbers rather than base64.
func (t Timeline) MarshalJSON() ([]byte, error) {
	goals := make([]int, len(t))
	for i, g := range t {
		goals[i] = int(g)
	}
	return json.Marshal(goals)
}

func (t *Timeline) UnmarshalJSON(data []byte) error {
	var goals []int
	if err := json.Unmarshal(data, &goals); err != nil {
		return err
	}
	*t = make(Timeline, len(goals))
	for i, g := range goals {
		if g < 0 || g > math.MaxUint8 {
			return fmt.Errorf("minute %d: goal count %d out of range", i, g)
		}
		(*t)[i] = uint8(g)
	}
	return nil
}

// MatchResult is one simulated match. The totals and half time counts are
// cached sums of the timelines; Validate checks they agree.
type MatchResult struct {
	HomeGoals    int      `json:"home_goals"`
	AwayGoals    int      `json:"away_goals"`
	HomeHT       int      `json:"home_ht"`
	AwayHT       int      `json:"away_ht"`
	HomeTimeline Timeline `json:"home_timeline"`
	AwayTimeline Timeline `json:"away_timeline"`
}

func (m *MatchResult) HomeSecondHalf() int {
	return m.HomeGoals - m.HomeHT
}

func (m *MatchResult) AwaySecondHalf() int {
	return m.AwayGoals - m.AwayHT
}

func (m *MatchResult) TotalGoals() int {
	return m.HomeGoals + m.AwayGoals
}

// Validate checks the cached counts against the timelines.
func (m *MatchResult) Validate() error {
	if len(m.HomeTimeline) != MatchMinutes || len(m.AwayTimeline) != MatchMinutes {
		return fmt.Errorf("timeline length %d/%d, expected %d", len(m.HomeTimeline), len(m.AwayTimeline), MatchMinutes)
	}
	if m.HomeGoals != m.HomeTimeline.Sum(0, MatchMinutes) || m.AwayGoals != m.AwayTimeline.Sum(0, MatchMinutes) {
		return fmt.Errorf("totals %d-%d disagree with timelines", m.HomeGoals, m.AwayGoals)
	}
	if m.HomeHT != m.HomeTimeline.Sum(0, HalfTimeMinute) || m.AwayHT != m.AwayTimeline.Sum(0, HalfTimeMinute) {
		return fmt.Errorf("half time %d-%d disagrees with timelines", m.HomeHT, m.AwayHT)
	}
	return nil
}

// MatchSimulator plays one match from a single posterior draw.
type MatchSimulator struct {
	DefenseNormaliser float64
	MinRate           float64
}

func NewMatchSimulator(cfg *PoddsConfig) MatchSimulator {
	return MatchSimulator{DefenseNormaliser: cfg.DefenseNormaliser, MinRate: cfg.MinScoringRate}
}

// EffectiveRates converts a draw into full match scoring rates. A side's
// attack is scaled by the opponent's defense and floored at MinRate.
func (s MatchSimulator) EffectiveRates(r Rates) (home, away float64) {
	home = math.Max(r.HomeAttack*r.AwayDefense/s.DefenseNormaliser, s.MinRate)
	away = math.Max(r.AwayAttack*r.HomeDefense/s.DefenseNormaliser, s.MinRate)
	return home, away
}

// Simulate draws an independent Poisson goal count per minute per side.
// Home and away draws interleave within each minute.
func (s MatchSimulator) Simulate(r Rates, rng *rand.Rand) MatchResult {
	homeRate, awayRate := s.EffectiveRates(r)
	res := MatchResult{
		HomeTimeline: make(Timeline, MatchMinutes),
		AwayTimeline: make(Timeline, MatchMinutes),
	}
	for minute := range MatchMinutes {
		h := poissonDraw(Intensity(homeRate, minute), rng)
		a := poissonDraw(Intensity(awayRate, minute), rng)
		res.HomeTimeline[minute] = h
		res.AwayTimeline[minute] = a
		res.HomeGoals += int(h)
		res.AwayGoals += int(a)
		if minute < HalfTimeMinute {
			res.HomeHT += int(h)
			res.AwayHT += int(a)
		}
	}
	return res
}

func poissonDraw(lambda float64, rng *rand.Rand) uint8 {
	k := distuv.Poisson{Lambda: lambda, Src: rng}.Rand()
	return uint8(math.Min(k, math.MaxUint8))
}
