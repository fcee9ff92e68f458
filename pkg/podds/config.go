package podds

import (
	"fmt"
	"time"
)

// PoddsConfig contains all configurable parameters that influence prediction outcomes
// This centralizes all magic numbers and constants for easy adjustment
type PoddsConfig struct {
	// Database and data parameters
	PoddsDbPath     string `yaml:"db_path"`          // The location of the podds sqlite database ("" disables persistence)
	TeamDataPath    string `yaml:"team_data"`        // File path or http(s) URL of the team statistics document
	LogLevel        string `yaml:"log_level"`        // DEBUG, INFO, WARN ...
	LogOutput       string `yaml:"log_output"`       // console, file or both
	LogPath         string `yaml:"log_path"`         // Log file used by the file and both outputs
	LogDateTime     bool   `yaml:"log_datetime"`     // Prefix log lines with date and time
	DefaultFidelity string `yaml:"default_fidelity"` // quick or full

	// === RATE ESTIMATION ===

	Quick Fidelity `yaml:"quick"` // Fast, user facing fit (default: 500/500/2)
	Full  Fidelity `yaml:"full"`  // Slow precise fit (default: 2000/1000/2)

	RateLowerBound float64       `yaml:"rate_lower_bound"` // Prior support lower bound (default: 0.05)
	RateUpperBound float64       `yaml:"rate_upper_bound"` // Prior support upper bound (default: 6.0)
	MinStd         float64       `yaml:"min_std"`          // Floor applied to every std (default: 0.3)
	MaxRHat        float64       `yaml:"max_rhat"`         // Split R-hat above this fails the fit (default: 1.1)
	FitTimeout     time.Duration `yaml:"fit_timeout"`      // Caller side budget for one fit (default: 2m)

	// Used when a team has no statistics at all
	DefaultGoalsAvg float64 `yaml:"default_goals_avg"` // (default: 1.0)
	DefaultGoalsStd float64 `yaml:"default_goals_std"` // (default: 0.5)
	HistoryMatches  int     `yaml:"history_matches"`   // Stored matches used to build stats for teams missing from team data (default: 10)

	// === SHRINKAGE ===

	ShrinkageK           float64 `yaml:"shrinkage_k"`            // Pseudo-match weight of the global mean (default: 8, 0 disables)
	DefaultGlobalAttack  float64 `yaml:"default_global_attack"`  // Used when no league table is loaded (default: 1.2)
	DefaultGlobalDefense float64 `yaml:"default_global_defense"` // (default: 1.2)

	// === SIMULATION ===

	Seed              uint64  `yaml:"seed"`                // Base seed for fits and simulations (default: 42)
	Simulations       int     `yaml:"simulations"`         // Monte Carlo matches per prediction (default: 10200)
	MaxSimulations    int     `yaml:"max_simulations"`     // Upper limit accepted from callers (default: 200000)
	ProgressInterval  int     `yaml:"progress_interval"`   // Iterations between progress callbacks (default: 200)
	DefenseNormaliser float64 `yaml:"defense_normaliser"`  // Divisor for attack x defense (default: 1.3)
	MinScoringRate    float64 `yaml:"min_scoring_rate"`    // Floor for effective match rates (default: 0.1)
	Workers           int     `yaml:"workers"`             // Parallel simulation workers, <= 1 runs sequentially (default: 1)
	TopScorelines     int     `yaml:"top_scorelines"`      // Full time scorelines reported (default: 5)
	TopHalfTimeScores int     `yaml:"top_halftime_scores"` // Half time scorelines reported (default: 8)

	// === OVER/UNDER GOALS THRESHOLDS ===

	Over1p5GoalsThreshold float64 `yaml:"over_1p5"` // Threshold for over 1.5 goals (default: 1.5)
	Over2p5GoalsThreshold float64 `yaml:"over_2p5"` // Threshold for over 2.5 goals (default: 2.5)

	// === POSTERIOR CACHE ===

	CacheSize int           `yaml:"cache_size"` // Posteriors held in memory (default: 256)
	CacheTTL  time.Duration `yaml:"cache_ttl"`  // Lifetime of a cached posterior, 0 never expires (default: 1h)
}

// DefaultPoddsConfig returns the default configuration with all standard values
func DefaultPoddsConfig() *PoddsConfig {
	return &PoddsConfig{
		PoddsDbPath:     "",
		LogLevel:        "INFO",
		LogOutput:       "console",
		DefaultFidelity: QuickFidelity.Name,

		Quick:          QuickFidelity,
		Full:           FullFidelity,
		RateLowerBound: 0.05,
		RateUpperBound: 6.0,
		MinStd:         0.3,
		MaxRHat:        1.1,
		FitTimeout:     2 * time.Minute,

		DefaultGoalsAvg: 1.0,
		DefaultGoalsStd: 0.5,
		HistoryMatches:  10,

		ShrinkageK:           8,
		DefaultGlobalAttack:  1.2,
		DefaultGlobalDefense: 1.2,

		Seed:              42,
		Simulations:       10200,
		MaxSimulations:    200000,
		ProgressInterval:  200,
		DefenseNormaliser: 1.3,
		MinScoringRate:    0.1,
		Workers:           1,
		TopScorelines:     5,
		TopHalfTimeScores: 8,

		Over1p5GoalsThreshold: 1.5,
		Over2p5GoalsThreshold: 2.5,

		CacheSize: 256,
		CacheTTL:  time.Hour,
	}
}

// Fidelity resolves a fidelity name against the configured tiers
func (c *PoddsConfig) Fidelity(name string) (Fidelity, error) {
	if name == "" {
		name = c.DefaultFidelity
	}
	switch name {
	case c.Quick.Name:
		return c.Quick, nil
	case c.Full.Name:
		return c.Full, nil
	}
	return Fidelity{}, fmt.Errorf("unknown fidelity %q (expected %q or %q)", name, c.Quick.Name, c.Full.Name)
}

// === CONFIGURATION VALIDATION ===

// ValidateConfig ensures all configuration values are within reasonable ranges
func ValidateConfig(config *PoddsConfig) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if err := config.Quick.Validate(); err != nil {
		return fmt.Errorf("quick fidelity: %w", err)
	}
	if err := config.Full.Validate(); err != nil {
		return fmt.Errorf("full fidelity: %w", err)
	}
	if config.Quick.Name == config.Full.Name {
		return fmt.Errorf("fidelity names must differ, both are %q", config.Quick.Name)
	}
	if _, err := config.Fidelity(config.DefaultFidelity); err != nil {
		return fmt.Errorf("DefaultFidelity: %w", err)
	}
	if config.RateLowerBound <= 0 || config.RateUpperBound <= config.RateLowerBound {
		return fmt.Errorf("rate bounds must satisfy 0 < lower < upper, got: (%f, %f)", config.RateLowerBound, config.RateUpperBound)
	}
	if config.MinStd <= 0 {
		return fmt.Errorf("MinStd must be positive, got: %f", config.MinStd)
	}
	if config.MaxRHat < 1.0 {
		return fmt.Errorf("MaxRHat must be at least 1.0, got: %f", config.MaxRHat)
	}
	if config.FitTimeout < 0 {
		return fmt.Errorf("FitTimeout must not be negative, got: %s", config.FitTimeout)
	}
	if config.DefaultGoalsAvg <= 0 || config.DefaultGoalsStd <= 0 {
		return fmt.Errorf("default goals avg/std must be positive, got: %f/%f", config.DefaultGoalsAvg, config.DefaultGoalsStd)
	}
	if config.HistoryMatches < 1 {
		return fmt.Errorf("HistoryMatches must be positive, got: %d", config.HistoryMatches)
	}
	if config.ShrinkageK < 0 {
		return fmt.Errorf("ShrinkageK must not be negative, got: %f", config.ShrinkageK)
	}
	if config.DefaultGlobalAttack <= 0 || config.DefaultGlobalDefense <= 0 {
		return fmt.Errorf("default global priors must be positive, got: %f/%f", config.DefaultGlobalAttack, config.DefaultGlobalDefense)
	}
	if config.Simulations < 1 || config.Simulations > config.MaxSimulations {
		return fmt.Errorf("Simulations must be between 1 and %d, got: %d", config.MaxSimulations, config.Simulations)
	}
	if config.ProgressInterval < 1 {
		return fmt.Errorf("ProgressInterval must be positive, got: %d", config.ProgressInterval)
	}
	if config.DefenseNormaliser <= 0 {
		return fmt.Errorf("DefenseNormaliser must be positive, got: %f", config.DefenseNormaliser)
	}
	if config.MinScoringRate <= 0 {
		return fmt.Errorf("MinScoringRate must be positive, got: %f", config.MinScoringRate)
	}
	if config.TopScorelines < 1 || config.TopHalfTimeScores < 1 {
		return fmt.Errorf("scoreline counts must be positive, got: %d/%d", config.TopScorelines, config.TopHalfTimeScores)
	}
	if config.CacheSize < 1 {
		return fmt.Errorf("CacheSize must be positive, got: %d", config.CacheSize)
	}
	if config.CacheTTL < 0 {
		return fmt.Errorf("CacheTTL must not be negative, got: %s", config.CacheTTL)
	}
	return nil
}
