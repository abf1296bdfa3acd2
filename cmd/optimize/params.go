// Package main provides CMA-ES optimization for colony simulation parameters.
package main

import (
	"formic/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Trail following
			{Name: "trail_enter", Path: "behavior.trail_enter", Min: 1.0, Max: 10.0, Default: 4.0},
			{Name: "trail_exit", Path: "behavior.trail_exit", Min: 0.2, Max: 3.0, Default: 1.0},
			{Name: "trail_min_latch", Path: "behavior.trail_min_latch", Min: 0.1, Max: 2.0, Default: 0.5},
			{Name: "trail_lock_duration", Path: "behavior.trail_lock_duration", Min: 1.0, Max: 15.0, Default: 6.0},
			// Exploration
			{Name: "explore_cone", Path: "behavior.explore_cone", Min: 0.4, Max: 1.6, Default: 1.05},
			{Name: "explore_temp", Path: "behavior.explore_temp", Min: 0.1, Max: 2.0, Default: 0.6},
			{Name: "levy_mu", Path: "behavior.levy_mu", Min: 1.2, Max: 3.0, Default: 2.0},
			{Name: "levy_scale", Path: "behavior.levy_scale", Min: 10.0, Max: 80.0, Default: 30.0},
			{Name: "gradient_max_weight", Path: "behavior.gradient_max_weight", Min: 0.2, Max: 1.0, Default: 0.8},
			// Trail deposits
			{Name: "deposit_spacing", Path: "behavior.deposit_spacing", Min: 2.0, Max: 15.0, Default: 6.0},
			{Name: "food_trail_deposit", Path: "behavior.food_trail_deposit", Min: 2.0, Max: 20.0, Default: 8.0},
			{Name: "home_trail_forager", Path: "behavior.home_trail_forager", Min: 0.2, Max: 6.0, Default: 1.5},
			{Name: "home_trail_scout", Path: "behavior.home_trail_scout", Min: 0.5, Max: 12.0, Default: 5.0},
			// Population and economy
			{Name: "scout_fraction", Path: "agents.scout_fraction", Min: 0.05, Max: 0.40, Default: 0.15},
			{Name: "energy_drain", Path: "agents.energy_drain", Min: 0.2, Max: 2.0, Default: 0.8},
			{Name: "spawn_cost", Path: "economy.spawn_cost", Min: 2.0, Max: 15.0, Default: 5.0},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	i := 0

	// Trail following
	cfg.Behavior.TrailEnter = clamped[i]; i++
	cfg.Behavior.TrailExit = clamped[i]; i++
	cfg.Behavior.TrailMinLatch = clamped[i]; i++
	cfg.Behavior.TrailLockDuration = clamped[i]; i++

	// Exploration
	cfg.Behavior.ExploreCone = clamped[i]; i++
	cfg.Behavior.ExploreTemp = clamped[i]; i++
	cfg.Behavior.LevyMu = clamped[i]; i++
	cfg.Behavior.LevyScale = clamped[i]; i++
	cfg.Behavior.GradientMaxWeight = clamped[i]; i++

	// Trail deposits
	cfg.Behavior.DepositSpacing = clamped[i]; i++
	cfg.Behavior.FoodTrailDeposit = clamped[i]; i++
	cfg.Behavior.HomeTrailForager = clamped[i]; i++
	cfg.Behavior.HomeTrailScout = clamped[i]; i++

	// Population and economy
	cfg.Agents.ScoutFraction = clamped[i]; i++
	cfg.Agents.EnergyDrain = clamped[i]; i++
	cfg.Economy.SpawnCost = clamped[i]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Behavior.TrailEnter,
		cfg.Behavior.TrailExit,
		cfg.Behavior.TrailMinLatch,
		cfg.Behavior.TrailLockDuration,
		cfg.Behavior.ExploreCone,
		cfg.Behavior.ExploreTemp,
		cfg.Behavior.LevyMu,
		cfg.Behavior.LevyScale,
		cfg.Behavior.GradientMaxWeight,
		cfg.Behavior.DepositSpacing,
		cfg.Behavior.FoodTrailDeposit,
		cfg.Behavior.HomeTrailForager,
		cfg.Behavior.HomeTrailScout,
		cfg.Agents.ScoutFraction,
		cfg.Agents.EnergyDrain,
		cfg.Economy.SpawnCost,
	}
}
