package game

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"formic/components"
	"formic/config"
	"formic/systems"
	"formic/telemetry"
)

// Colony is one nest: a fixed site plus its food economy.
type Colony struct {
	systems.ColonySite
	FoodStock  float32
	Delivered  float64
	Population int
	Deaths     int
}

// Game holds the complete simulation state.
type Game struct {
	world *ecs.World
	rng   *rand.Rand

	antMapper *ecs.Map3[
		components.Position,
		components.Velocity,
		components.Ant,
	]
	antFilter *ecs.Filter3[
		components.Position,
		components.Velocity,
		components.Ant,
	]

	// Individual component mappers for lookups
	posMap *ecs.Map1[components.Position]
	velMap *ecs.Map1[components.Velocity]
	antMap *ecs.Map1[components.Ant]

	field     *systems.ChemicalField
	obstacles *systems.ObstacleManager
	food      *systems.FoodManager
	resolver  *systems.CollisionResolver
	engine    *systems.BehaviorEngine

	colonies []Colony

	collector *telemetry.Collector
	output    *telemetry.OutputManager
	runDB     *telemetry.RunDB
	perf      *telemetry.PerfCollector

	parallel *parallelState

	tick     int32
	simSpeed int
	nextID   uint32

	worldW, worldH float32
	pickupRadius   float32

	logInterval int32 // Ticks between world-state dumps, 0 disables
}

// NewGame creates a simulation from the global config. seed overrides
// the worldgen seed when nonzero.
func NewGame(seed int64) *Game {
	cfg := config.Cfg()
	if seed == 0 {
		seed = cfg.Worldgen.Seed
	}

	world := ecs.NewWorld()

	g := &Game{
		world:    world,
		rng:      rand.New(rand.NewSource(seed)),
		simSpeed: 1,
		worldW:   cfg.Derived.WorldW32,
		worldH:   cfg.Derived.WorldH32,

		pickupRadius: float32(cfg.Food.PickupRadius),

		antMapper: ecs.NewMap3[
			components.Position,
			components.Velocity,
			components.Ant,
		](world),
		antFilter: ecs.NewFilter3[
			components.Position,
			components.Velocity,
			components.Ant,
		](world),
		posMap: ecs.NewMap1[components.Position](world),
		velMap: ecs.NewMap1[components.Velocity](world),
		antMap: ecs.NewMap1[components.Ant](world),
	}

	// Colonies come first: worldgen keeps obstacles and food away
	// from them.
	sites := make([]systems.ColonySite, 0, len(cfg.Colonies))
	for i, cc := range cfg.Colonies {
		site := systems.ColonySite{
			ID:     i,
			X:      float32(cc.X) * g.worldW,
			Y:      float32(cc.Y) * g.worldH,
			Radius: float32(cc.Radius),
		}
		sites = append(sites, site)
		g.colonies = append(g.colonies, Colony{
			ColonySite: site,
			FoodStock:  float32(cfg.Economy.InitialStock),
		})
	}

	g.field = systems.NewChemicalField(g.worldW, g.worldH, &cfg.Field)
	g.food = systems.NewFoodManager()

	obstacles := g.generateObstacles(cfg, seed, sites)
	g.obstacles = systems.NewObstacleManager(obstacles, g.worldW, g.worldH, obstacleGridCell)
	g.generateFood(cfg, seed, sites)

	g.resolver = systems.NewCollisionResolver(&cfg.Collision)
	g.collector = telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Derived.DT32)
	g.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	g.engine = systems.NewBehaviorEngine(cfg, g.field, g.obstacles, g.resolver, sites, g.collector)

	g.parallel = newParallelState(seed)

	g.spawnInitialPopulation(cfg)

	return g
}

// SetOutput attaches an optional CSV output manager.
func (g *Game) SetOutput(om *telemetry.OutputManager) { g.output = om }

// SetRunDB attaches an optional run recorder.
func (g *Game) SetRunDB(db *telemetry.RunDB) { g.runDB = db }

// SetSpeed sets the simulation speed multiplier.
func (g *Game) SetSpeed(speed int) {
	if speed < 1 {
		speed = 1
	}
	g.simSpeed = speed
}

// SetLogInterval sets the tick interval between world-state dumps.
func (g *Game) SetLogInterval(ticks int32) { g.logInterval = ticks }

// Tick returns the current tick counter.
func (g *Game) Tick() int32 { return g.tick }

// Colonies returns the colony list.
func (g *Game) Colonies() []Colony { return g.colonies }

// TotalDelivered sums delivered food across colonies.
func (g *Game) TotalDelivered() float64 {
	var total float64
	for i := range g.colonies {
		total += g.colonies[i].Delivered
	}
	return total
}

// AliveCount counts living ants.
func (g *Game) AliveCount() int {
	n := 0
	query := g.antFilter.Query()
	for query.Next() {
		_, _, ant := query.Get()
		if !ant.Dead {
			n++
		}
	}
	return n
}

// Close releases worker goroutines and attached sinks.
func (g *Game) Close() {
	g.parallel.stopWorkers()
	if g.output != nil {
		g.output.Close()
	}
	if g.runDB != nil {
		g.runDB.Close()
	}
}

func (g *Game) foodTrailTotal() float64 {
	var total float64
	for i := range g.colonies {
		total += g.field.Total(systems.TrailFood, i)
	}
	return total
}

func (g *Game) homeTrailTotal() float64 {
	var total float64
	for i := range g.colonies {
		total += g.field.Total(systems.TrailHome, i)
	}
	return total
}
