package game

import (
	"fmt"
	"io"

	"formic/components"
	"formic/systems"
)

// logWriter is the destination for log output.
var logWriter io.Writer

// SetLogWriter sets the log output destination.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// logWorldState logs the current simulation state.
func (g *Game) logWorldState() {
	var alive, dead, returning, carrying int
	var foragers, scouts int
	var energySum, energyMin, energyMax float32
	energyMin = 1e9

	query := g.antFilter.Query()
	for query.Next() {
		_, _, ant := query.Get()
		if ant.Dead {
			dead++
			continue
		}
		alive++
		if ant.Role == components.RoleScout {
			scouts++
		} else {
			foragers++
		}
		if ant.State == components.StateReturning {
			returning++
		}
		if ant.CarryAmount > 0 {
			carrying++
		}
		energySum += ant.Energy
		if ant.Energy < energyMin {
			energyMin = ant.Energy
		}
		if ant.Energy > energyMax {
			energyMax = ant.Energy
		}
	}

	avgEnergy := float32(0)
	if alive > 0 {
		avgEnergy = energySum / float32(alive)
	}
	if energyMin > energyMax {
		energyMin = 0
	}

	Logf("=== Tick %d ===", g.tick)
	Logf("Ants: %d (foragers: %d, scouts: %d, returning: %d, carrying: %d, dead: %d)",
		alive, foragers, scouts, returning, carrying, dead)
	Logf("Energy: %.1f avg, %.1f-%.1f range", avgEnergy, energyMin, energyMax)
	for i := range g.colonies {
		c := &g.colonies[i]
		Logf("Colony %d: stock %.1f, delivered %.1f, population %d",
			c.ID, c.FoodStock, c.Delivered, c.Population)
	}
	Logf("Food sources: %d (%.1f remaining)", g.food.Count(), g.food.TotalRemaining())
	Logf("Trail mass: food %.1f, home %.1f, alarm %.1f",
		g.foodTrailTotal(), g.homeTrailTotal(), g.field.Total(systems.TrailAlarm, 0))
	Logf("")
}
