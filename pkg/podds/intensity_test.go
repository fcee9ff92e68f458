package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntensityLateSurge(t *testing.T) {
	assert.Less(t, Intensity(90, 10), Intensity(90, 85))
}

func TestIntensityIntegratesToBaseRate(t *testing.T) {
	for _, base := range []float64{0.1, 1.0, 2.7} {
		total := 0.0
		for m := range MatchMinutes {
			total += Intensity(base, m)
		}
		assert.InDelta(t, base, total, 1e-9)
	}
}

func TestTempoBands(t *testing.T) {
	cases := map[int]float64{
		0: 0.85, 14: 0.85,
		15: 1.00, 44: 1.00,
		45: 1.10, 59: 1.10,
		60: 1.05, 79: 1.05,
		80: 1.30, 89: 1.30,
		-3: 0.85, 95: 1.30,
	}
	for minute, want := range cases {
		assert.Equal(t, want, TempoMultiplier(minute), "minute %d", minute)
	}
	assert.InDelta(t, 2.0/90*1.10*90/93.25, Intensity(2.0, 50), 1e-12)
}
