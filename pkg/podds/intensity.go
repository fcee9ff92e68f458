package podds

// MatchMinutes is the simulated match length; stoppage time is not modelled.
const MatchMinutes = 90

// HalfTimeMinute is the first minute of the second half.
const HalfTimeMinute = 45

// tempoTotal is the sum of the band multipliers over 90 minutes.
const tempoTotal = 93.25

type tempoBand struct {
	start, end int
	multiplier float64
}

var tempoBands = [...]tempoBand{
	{0, 15, 0.85},
	{15, 45, 1.00},
	{45, 60, 1.10},
	{60, 80, 1.05},
	{80, 90, 1.30},
}

// TempoMultiplier returns the relative scoring tempo for a minute in [0, 90).
// Minutes outside the match take the nearest band.
func TempoMultiplier(minute int) float64 {
	if minute < 0 {
		return tempoBands[0].multiplier
	}
	for _, b := range tempoBands {
		if minute < b.end {
			return b.multiplier
		}
	}
	return tempoBands[len(tempoBands)-1].multiplier
}

// Intensity is the expected number of goals in one minute for a side whose
// full match scoring rate is baseRate.
func Intensity(baseRate float64, minute int) float64 {
	return (baseRate / MatchMinutes) * TempoMultiplier(minute) * (MatchMinutes / tempoTotal)
}
