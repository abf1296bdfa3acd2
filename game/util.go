package game

import "math"

func cos32(a float32) float32 { return float32(math.Cos(float64(a))) }
func sin32(a float32) float32 { return float32(math.Sin(float64(a))) }

// randRange returns a uniform value in [lo, hi).
func (g *Game) randRange(lo, hi float32) float32 {
	return lo + g.rng.Float32()*(hi-lo)
}
