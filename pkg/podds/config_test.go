package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultPoddsConfig()
	require.NoError(t, ValidateConfig(cfg))
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 10200, cfg.Simulations)
	assert.Equal(t, 200, cfg.ProgressInterval)
}

func TestValidateConfigRejects(t *testing.T) {
	cases := map[string]func(*PoddsConfig){
		"bounds":      func(c *PoddsConfig) { c.RateUpperBound = c.RateLowerBound },
		"min std":     func(c *PoddsConfig) { c.MinStd = 0 },
		"simulations": func(c *PoddsConfig) { c.Simulations = c.MaxSimulations + 1 },
		"fidelity":    func(c *PoddsConfig) { c.DefaultFidelity = "medium" },
		"same names":  func(c *PoddsConfig) { c.Full.Name = c.Quick.Name },
		"chains":      func(c *PoddsConfig) { c.Quick.Chains = 0 },
		"cache":       func(c *PoddsConfig) { c.CacheSize = 0 },
		"rhat":        func(c *PoddsConfig) { c.MaxRHat = 0.9 },
		"shrinkage":   func(c *PoddsConfig) { c.ShrinkageK = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultPoddsConfig()
			mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
	assert.Error(t, ValidateConfig(nil))
}

func TestFidelityLookup(t *testing.T) {
	cfg := DefaultPoddsConfig()

	f, err := cfg.Fidelity("")
	require.NoError(t, err)
	assert.Equal(t, QuickFidelity, f)

	f, err = cfg.Fidelity("full")
	require.NoError(t, err)
	assert.Equal(t, 4000, f.Draws())

	_, err = cfg.Fidelity("turbo")
	assert.Error(t, err)

	f, err = FidelityByName("quick")
	require.NoError(t, err)
	assert.Equal(t, 1000, f.Draws())
	_, err = FidelityByName("")
	assert.Error(t, err)
}
