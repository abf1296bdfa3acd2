package telemetry

import (
	"math"
	"sync"
	"testing"
)

func TestCollectorWindowDuration(t *testing.T) {
	c := NewCollector(5.0, 1.0/30.0)

	if got := c.WindowDurationTicks(); got != 150 {
		t.Errorf("WindowDurationTicks() = %d, want 150", got)
	}

	if c.ShouldFlush(149) {
		t.Error("should not flush before window is full")
	}
	if !c.ShouldFlush(150) {
		t.Error("should flush when window is full")
	}
}

func TestCollectorWindowDurationMinimum(t *testing.T) {
	// Degenerate config must still produce at least one tick per window.
	c := NewCollector(0.001, 1.0/30.0)

	if got := c.WindowDurationTicks(); got != 1 {
		t.Errorf("WindowDurationTicks() = %d, want 1", got)
	}
}

func TestCollectorFlushResets(t *testing.T) {
	c := NewCollector(1.0, 1.0/30.0)

	c.RecordPickup(2.0)
	c.RecordPickup(3.0)
	c.RecordDelivery(2.0)
	c.RecordBirth()
	c.AgentDied(nil)
	c.StuckRecovery(nil)
	c.StuckRecovery(nil)
	c.TrailLock(nil)

	snap := WorldSnapshot{
		Alive:    10,
		Foragers: 7,
		Scouts:   3,
		Carrying: 2,
		Energies: []float64{1, 2, 3, 4},
	}
	stats := c.Flush(30, snap)

	if stats.Pickups != 2 {
		t.Errorf("Pickups = %d, want 2", stats.Pickups)
	}
	if math.Abs(stats.PickupAmount-5.0) > 1e-9 {
		t.Errorf("PickupAmount = %v, want 5", stats.PickupAmount)
	}
	if stats.Deliveries != 1 || math.Abs(stats.FoodDelivered-2.0) > 1e-9 {
		t.Errorf("Deliveries = %d FoodDelivered = %v, want 1 and 2", stats.Deliveries, stats.FoodDelivered)
	}
	if stats.Births != 1 || stats.Deaths != 1 {
		t.Errorf("Births = %d Deaths = %d, want 1 and 1", stats.Births, stats.Deaths)
	}
	if stats.StuckRecoveries != 2 || stats.TrailLocks != 1 {
		t.Errorf("StuckRecoveries = %d TrailLocks = %d, want 2 and 1", stats.StuckRecoveries, stats.TrailLocks)
	}
	if stats.Ants != 10 || stats.Foragers != 7 || stats.Scouts != 3 {
		t.Errorf("population fields not carried through: %+v", stats)
	}
	if math.Abs(stats.EnergyMean-2.5) > 1e-9 {
		t.Errorf("EnergyMean = %v, want 2.5", stats.EnergyMean)
	}
	if math.Abs(stats.SimTimeSec-1.0) > 1e-6 {
		t.Errorf("SimTimeSec = %v, want 1.0", stats.SimTimeSec)
	}

	// Second flush over an empty window sees zeroed counters.
	stats = c.Flush(60, WorldSnapshot{})
	if stats.Pickups != 0 || stats.Deliveries != 0 || stats.Births != 0 ||
		stats.Deaths != 0 || stats.StuckRecoveries != 0 || stats.TrailLocks != 0 {
		t.Errorf("counters not reset after flush: %+v", stats)
	}
	if stats.WindowStartTick != 30 {
		t.Errorf("WindowStartTick = %d, want 30", stats.WindowStartTick)
	}
}

func TestCollectorConcurrentObserverEvents(t *testing.T) {
	c := NewCollector(1.0, 1.0/30.0)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.AgentDied(nil)
				c.StuckRecovery(nil)
				c.TrailLock(nil)
			}
		}()
	}
	wg.Wait()

	stats := c.Flush(30, WorldSnapshot{})
	if stats.Deaths != 800 || stats.StuckRecoveries != 800 || stats.TrailLocks != 800 {
		t.Errorf("concurrent counts = %d/%d/%d, want 800 each",
			stats.Deaths, stats.StuckRecoveries, stats.TrailLocks)
	}
}
