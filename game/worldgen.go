package game

import (
	"github.com/ojrac/opensimplex-go"

	"formic/config"
	"formic/systems"
)

// obstacleGridCell is the obstacle index cell size in world units.
const obstacleGridCell = 64

// worldgen places obstacles and food from 2D noise so runs are
// reproducible per seed: obstacles cluster where the noise is high,
// food collects where it is low.

// generateObstacles samples candidate points until the configured count
// of obstacle circles is placed, skipping colony surroundings.
func (g *Game) generateObstacles(cfg *config.Config, seed int64, sites []systems.ColonySite) []systems.Obstacle {
	noise := opensimplex.New(seed)
	scale := cfg.Worldgen.NoiseScale
	level := cfg.Worldgen.ObstacleLevel

	obstacles := make([]systems.Obstacle, 0, cfg.Obstacles.Count)
	attempts := cfg.Obstacles.Count * 40
	for len(obstacles) < cfg.Obstacles.Count && attempts > 0 {
		attempts--
		x := g.randRange(0, g.worldW)
		y := g.randRange(0, g.worldH)
		if noise.Eval2(float64(x)*scale, float64(y)*scale) < level {
			continue
		}

		radius := g.randRange(float32(cfg.Obstacles.RadiusMin), float32(cfg.Obstacles.RadiusMax))
		if tooNearColony(x, y, radius+colonyClearance, sites) {
			continue
		}
		obstacles = append(obstacles, systems.Obstacle{
			Kind:   systems.ObstacleCircle,
			X:      x,
			Y:      y,
			Radius: radius,
		})
	}
	return obstacles
}

// colonyClearance keeps obstacles from sealing a colony entrance.
const colonyClearance = 60

// generateFood places food sources in noise basins, away from colonies
// so foragers must travel.
func (g *Game) generateFood(cfg *config.Config, seed int64, sites []systems.ColonySite) {
	// Offset seed: food layout should not mirror the obstacle field.
	noise := opensimplex.New(seed + 1)
	scale := cfg.Worldgen.NoiseScale
	level := cfg.Worldgen.FoodLevel
	gap := float32(cfg.Food.MinColonyGap)

	placed := 0
	attempts := cfg.Food.Sources * 40
	for placed < cfg.Food.Sources && attempts > 0 {
		attempts--
		x := g.randRange(0, g.worldW)
		y := g.randRange(0, g.worldH)
		if noise.Eval2(float64(x)*scale, float64(y)*scale) > level {
			continue
		}
		if tooNearColony(x, y, gap, sites) {
			continue
		}
		if g.obstacles != nil && g.obstacles.CheckCollision(x, y, 4) != nil {
			continue
		}
		amount := g.randRange(float32(cfg.Food.AmountMin), float32(cfg.Food.AmountMax))
		g.food.Add(x, y, amount)
		placed++
	}

	// Noise basins can be scarce on some seeds: fall back to uniform
	// placement so the world never starts foodless.
	for placed < cfg.Food.Sources {
		x := g.randRange(0, g.worldW)
		y := g.randRange(0, g.worldH)
		if tooNearColony(x, y, gap, sites) {
			continue
		}
		amount := g.randRange(float32(cfg.Food.AmountMin), float32(cfg.Food.AmountMax))
		g.food.Add(x, y, amount)
		placed++
	}
}

func tooNearColony(x, y, gap float32, sites []systems.ColonySite) bool {
	for i := range sites {
		dx := x - sites[i].X
		dy := y - sites[i].Y
		limit := gap + sites[i].Radius
		if dx*dx+dy*dy < limit*limit {
			return true
		}
	}
	return false
}
