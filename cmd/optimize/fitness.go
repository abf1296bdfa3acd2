package main

import (
	"math"
	"sync"

	"formic/config"
	"formic/game"
)

// FitnessEvaluator runs headless simulations and computes fitness.
// Parameters are applied to the global config before each evaluation,
// so evaluations must run sequentially.
type FitnessEvaluator struct {
	params   *ParamVector
	maxTicks int32
	seeds    []int64

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:   params,
		maxTicks: maxTicks,
		seeds:    seeds,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Ticks between population samples for the quality score.
const sampleInterval = 600

// runResult holds the results from a single simulation run.
type runResult struct {
	delivered float64
	alive     []float64 // population samples over the run
	rates     []float64 // delivery rate per sample window
	extinct   bool
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative delivered food: more food home = lower (better) fitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// All seeds share the same parameters. The game reads the global
	// config at construction, so apply once before launching.
	fe.params.ApplyToConfig(config.Cfg(), x)

	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(s)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	for _, r := range results {
		quality := computeQuality(r)
		totalFitness += -(r.delivered * (1.0 + 0.2*quality))
		totalQuality += quality
	}

	n := float64(len(fe.seeds))

	fe.mu.Lock()
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation executes a single headless simulation run.
func (fe *FitnessEvaluator) runSimulation(seed int64) *runResult {
	g := game.NewGame(seed)
	defer g.Close()

	result := &runResult{}
	lastDelivered := 0.0

	for g.Tick() < fe.maxTicks {
		g.Step()

		if g.Tick()%sampleInterval == 0 {
			alive := g.AliveCount()
			delivered := g.TotalDelivered()
			result.alive = append(result.alive, float64(alive))
			result.rates = append(result.rates, delivered-lastDelivered)
			lastDelivered = delivered

			if alive == 0 {
				result.extinct = true
				break
			}
		}
	}

	result.delivered = g.TotalDelivered()
	return result
}

// Quality component weights.
const (
	qualityWeightStability = 0.4
	qualityWeightSurvival  = 0.3
	qualityWeightSustained = 0.3
)

// computeQuality scores ecosystem health in [0, 1]. A colony that keeps a
// steady population and is still delivering food late in the run beats one
// that strip-mines the nearest source and starves.
func computeQuality(r *runResult) float64 {
	if r.extinct || len(r.alive) < 2 {
		return 0
	}

	// 1. Population stability (CV across samples)
	c := cv(r.alive)
	stabilityScore := math.Exp(-c * c * 4.0)

	// 2. Survival: final population relative to peak
	peak := 0.0
	for _, a := range r.alive {
		if a > peak {
			peak = a
		}
	}
	survivalScore := 0.0
	if peak > 0 {
		survivalScore = r.alive[len(r.alive)-1] / peak
	}

	// 3. Sustained delivery: late-half rate vs run average
	half := len(r.rates) / 2
	var lateSum, totalSum float64
	for i, rate := range r.rates {
		totalSum += rate
		if i >= half {
			lateSum += rate
		}
	}
	sustainedScore := 0.0
	if totalSum > 0 {
		lateFrac := lateSum / totalSum
		// 0.5 means perfectly even delivery across the run
		sustainedScore = clamp01(lateFrac * 2.0)
	}

	quality := qualityWeightStability*stabilityScore +
		qualityWeightSurvival*survivalScore +
		qualityWeightSustained*sustainedScore

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
