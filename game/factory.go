package game

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"formic/components"
	"formic/config"
	"formic/systems"
)

// spawnInitialPopulation creates each colony's starting ants.
func (g *Game) spawnInitialPopulation(cfg *config.Config) {
	scoutFraction := float32(cfg.Agents.ScoutFraction)
	for ci := range g.colonies {
		for i := 0; i < cfg.Agents.Initial; i++ {
			role := components.RoleForager
			if g.rng.Float32() < scoutFraction {
				role = components.RoleScout
			}
			g.spawnAnt(ci, role)
		}
	}
}

// spawnAnt creates one ant at a random point inside its colony.
func (g *Game) spawnAnt(colonyID int, role components.Role) ecs.Entity {
	cfg := config.Cfg()
	c := &g.colonies[colonyID]

	id := g.nextID
	g.nextID++

	ang := g.rng.Float32() * 2 * math.Pi
	r := g.rng.Float32() * c.Radius
	pos := components.Position{
		X: c.X + cos32(ang)*r,
		Y: c.Y + sin32(ang)*r,
	}
	vel := components.Velocity{}

	ant := components.Ant{
		ID:            id,
		ColonyID:      uint8(colonyID),
		Role:          role,
		State:         components.StateForaging,
		Heading:       g.rng.Float32()*2*math.Pi - math.Pi,
		Energy:        float32(cfg.Agents.InitialEnergy),
		FoodSourceID:  systems.NoSource,
		VisionRange:   float32(cfg.Agents.ForagerVision),
		MaxSpeed:      float32(cfg.Agents.MaxSpeed),
		CarryCapacity: float32(cfg.Agents.ForagerCapacity),
	}
	if role == components.RoleScout {
		ant.VisionRange = float32(cfg.Agents.ScoutVision)
		ant.CarryCapacity = float32(cfg.Agents.ScoutCapacity)
		ant.MaxSpeed *= float32(cfg.Agents.ScoutSpeedScale)
	}
	ant.PrevX, ant.PrevY = pos.X, pos.Y
	ant.ResetDepositAnchors(pos.X, pos.Y)

	entity := g.antMapper.NewEntity(&pos, &vel, &ant)
	c.Population++
	return entity
}
