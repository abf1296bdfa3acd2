package game

import (
	"sort"

	"github.com/mlange-42/ark/ecs"

	"formic/components"
	"formic/config"
	"formic/systems"
	"formic/telemetry"
)

// Step advances the simulation by simSpeed ticks.
func (g *Game) Step() {
	for i := 0; i < g.simSpeed; i++ {
		g.simulationStep()
	}
}

// simulationStep runs a single tick: field pass, food bookkeeping,
// agent phase, pickups and deliveries, colony economy, telemetry.
// Agents sense the field as it stood before their deposits; deposits
// land before the next field pass.
func (g *Game) simulationStep() {
	cfg := config.Cfg()
	dt := cfg.Derived.DT32

	g.perf.StartTick()

	g.perf.StartPhase(telemetry.PhaseField)
	g.field.Update(1)

	g.perf.StartPhase(telemetry.PhaseFood)
	g.food.RemoveDepleted(g.field)

	g.perf.StartPhase(telemetry.PhaseAgents)
	g.updateAnts(dt)

	g.perf.StartPhase(telemetry.PhaseInteract)
	g.processInteractions()

	g.perf.StartPhase(telemetry.PhaseEconomy)
	g.updateEconomy(cfg)

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perf.EndTick()

	g.tick++
	if g.logInterval > 0 && g.tick%g.logInterval == 0 {
		g.logWorldState()
	}
}

// processInteractions runs the pickup and delivery checks with live
// component pointers. Single-threaded: both mutate shared state (food
// sources, colony stock).
func (g *Game) processInteractions() {
	query := g.antFilter.Query()
	for query.Next() {
		pos, vel, ant := query.Get()
		if ant.Dead {
			continue
		}

		if ant.State == components.StateForaging {
			s := g.food.Near(pos.X, pos.Y, g.pickupRadius)
			if s == nil {
				continue
			}
			taken := g.engine.CheckFoodPickup(pos, vel, ant, s.X, s.Y, g.pickupRadius, s.ID, s.Amount)
			if taken > 0 {
				g.food.Consume(s.ID, taken)
				g.collector.RecordPickup(taken)
			}
			continue
		}

		delivered := g.engine.CheckColonyReturn(pos, vel, ant, 0)
		if delivered > 0 {
			c := &g.colonies[ant.ColonyID]
			c.FoodStock += delivered
			c.Delivered += float64(delivered)
			g.collector.RecordDelivery(delivered)
		}
	}
}

// updateEconomy culls dead ants and respawns from colony stock.
func (g *Game) updateEconomy(cfg *config.Config) {
	type deadInfo struct {
		entity ecs.Entity
		colony uint8
	}
	var toRemove []deadInfo

	query := g.antFilter.Query()
	for query.Next() {
		entity := query.Entity()
		_, _, ant := query.Get()
		if ant.Dead {
			toRemove = append(toRemove, deadInfo{entity: entity, colony: ant.ColonyID})
		}
	}
	for _, dead := range toRemove {
		g.antMapper.Remove(dead.entity)
		c := &g.colonies[dead.colony]
		c.Population--
		c.Deaths++
	}

	spawnCost := float32(cfg.Economy.SpawnCost)
	scoutFraction := float32(cfg.Agents.ScoutFraction)
	for ci := range g.colonies {
		c := &g.colonies[ci]
		if c.Population >= cfg.Economy.RespawnBelow || c.Population >= cfg.Agents.MaxPerColony {
			continue
		}
		if c.FoodStock < spawnCost {
			continue
		}
		// One birth per colony per tick keeps spawn bursts smooth.
		role := components.RoleForager
		if g.rng.Float32() < scoutFraction {
			role = components.RoleScout
		}
		g.spawnAnt(ci, role)
		c.FoodStock -= spawnCost
		g.collector.RecordBirth()
	}
}

// flushTelemetry emits a stats window when due and forwards it to the
// attached sinks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	snap := g.worldSnapshot()
	stats := g.collector.Flush(g.tick, snap)

	if g.output != nil {
		if err := g.output.WriteTelemetry(stats); err != nil {
			Logf("telemetry write failed: %v", err)
		}
		if err := g.output.WritePerf(g.perf.Stats(), g.tick); err != nil {
			Logf("perf write failed: %v", err)
		}
	}
	if g.runDB != nil {
		if err := g.runDB.InsertWindow(stats); err != nil {
			Logf("run db write failed: %v", err)
		}
	}
}

// worldSnapshot samples current population and field state for a stats
// window.
func (g *Game) worldSnapshot() telemetry.WorldSnapshot {
	var snap telemetry.WorldSnapshot

	query := g.antFilter.Query()
	for query.Next() {
		_, _, ant := query.Get()
		if ant.Dead {
			continue
		}
		snap.Alive++
		if ant.Role == components.RoleScout {
			snap.Scouts++
		} else {
			snap.Foragers++
		}
		if ant.State == components.StateReturning {
			snap.Returning++
		}
		if ant.CarryAmount > 0 {
			snap.Carrying++
		}
		snap.Energies = append(snap.Energies, float64(ant.Energy))
	}
	sort.Float64s(snap.Energies)

	snap.FoodSources = g.food.Count()
	snap.FoodRemaining = g.food.TotalRemaining()
	for i := range g.colonies {
		snap.ColonyStock += float64(g.colonies[i].FoodStock)
		snap.Delivered += g.colonies[i].Delivered
	}
	snap.FoodTrail = g.foodTrailTotal()
	snap.HomeTrail = g.homeTrailTotal()
	snap.AlarmTrail = g.field.Total(systems.TrailAlarm, 0)
	return snap
}
