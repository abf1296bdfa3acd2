package telemetry

import (
	"sync/atomic"

	"formic/components"
)

// Collector accumulates events within time windows and produces WindowStats.
// RecordPickup, RecordDelivery, and RecordBirth are called from the
// single-threaded interaction and economy phases. The observer methods
// (AgentDied, StuckRecovery, TrailLock) fire from behavior workers and
// use atomic counters.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	pickups         int
	pickupAmount    float64
	deliveries      int
	deliveredAmount float64
	births          int

	deaths          atomic.Int64
	stuckRecoveries atomic.Int64
	trailLocks      atomic.Int64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := int32(windowDurationSec / float64(dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		windowStartTick:     0,
	}
}

// RecordPickup records a food pickup and the amount taken.
func (c *Collector) RecordPickup(amount float32) {
	c.pickups++
	c.pickupAmount += float64(amount)
}

// RecordDelivery records a food delivery to a colony.
func (c *Collector) RecordDelivery(amount float32) {
	c.deliveries++
	c.deliveredAmount += float64(amount)
}

// RecordBirth records a spawn event.
func (c *Collector) RecordBirth() {
	c.births++
}

// AgentDied records a death. Safe to call from behavior workers.
func (c *Collector) AgentDied(ant *components.Ant) {
	c.deaths.Add(1)
}

// StuckRecovery records a stuck-recovery event. Safe to call from
// behavior workers.
func (c *Collector) StuckRecovery(ant *components.Ant) {
	c.stuckRecoveries.Add(1)
}

// TrailLock records a trail commitment event. Safe to call from
// behavior workers.
func (c *Collector) TrailLock(ant *components.Ant) {
	c.trailLocks.Add(1)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// WorldSnapshot holds world state sampled at a window boundary.
// Energies must be sorted ascending.
type WorldSnapshot struct {
	Alive     int
	Foragers  int
	Scouts    int
	Returning int
	Carrying  int

	Energies []float64

	FoodSources   int
	FoodRemaining float64
	ColonyStock   float64
	Delivered     float64

	FoodTrail  float64
	HomeTrail  float64
	AlarmTrail float64
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, snap WorldSnapshot) WindowStats {
	energyMean, energyP10, energyP50, energyP90 := ComputeEnergyStats(snap.Energies)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		Ants:      snap.Alive,
		Foragers:  snap.Foragers,
		Scouts:    snap.Scouts,
		Returning: snap.Returning,
		Carrying:  snap.Carrying,

		Pickups:         c.pickups,
		PickupAmount:    c.pickupAmount,
		Deliveries:      c.deliveries,
		FoodDelivered:   c.deliveredAmount,
		Births:          c.births,
		Deaths:          int(c.deaths.Swap(0)),
		StuckRecoveries: int(c.stuckRecoveries.Swap(0)),
		TrailLocks:      int(c.trailLocks.Swap(0)),

		EnergyMean: energyMean,
		EnergyP10:  energyP10,
		EnergyP50:  energyP50,
		EnergyP90:  energyP90,

		FoodSources:   snap.FoodSources,
		FoodRemaining: snap.FoodRemaining,
		ColonyStock:   snap.ColonyStock,
		TotalDelivered: snap.Delivered,

		FoodTrail:  snap.FoodTrail,
		HomeTrail:  snap.HomeTrail,
		AlarmTrail: snap.AlarmTrail,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.pickups = 0
	c.pickupAmount = 0
	c.deliveries = 0
	c.deliveredAmount = 0
	c.births = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
