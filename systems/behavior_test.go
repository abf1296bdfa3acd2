package systems

import (
	"math"
	"testing"

	"formic/components"
	"formic/config"
)

type recordObserver struct {
	recoveries int
	locks      int
	deaths     int
}

func (o *recordObserver) StuckRecovery(*components.Ant) { o.recoveries++ }
func (o *recordObserver) TrailLock(*components.Ant)     { o.locks++ }
func (o *recordObserver) AgentDied(*components.Ant)     { o.deaths++ }

func newTestEngine(obstacles []Obstacle, obs BehaviorObserver) (*BehaviorEngine, *AgentScratch) {
	cfg := config.Cfg()
	field := NewChemicalField(cfg.Derived.WorldW32, cfg.Derived.WorldH32, &cfg.Field)
	om := testObstacles(obstacles)
	resolver := NewCollisionResolver(&cfg.Collision)
	colonies := []ColonySite{{ID: 0, X: 800, Y: 500, Radius: 24}}
	return NewBehaviorEngine(cfg, field, om, resolver, colonies, obs), NewAgentScratch(1)
}

func newTestAnt(role components.Role) *components.Ant {
	cfg := config.Cfg()
	ant := &components.Ant{
		Role:         role,
		State:        components.StateForaging,
		Energy:       float32(cfg.Agents.InitialEnergy),
		MaxSpeed:     float32(cfg.Agents.MaxSpeed),
		FoodSourceID: NoSource,
	}
	if role == components.RoleScout {
		ant.VisionRange = float32(cfg.Agents.ScoutVision)
		ant.CarryCapacity = float32(cfg.Agents.ScoutCapacity)
		ant.MaxSpeed *= float32(cfg.Agents.ScoutSpeedScale)
	} else {
		ant.VisionRange = float32(cfg.Agents.ForagerVision)
		ant.CarryCapacity = float32(cfg.Agents.ForagerCapacity)
	}
	return ant
}

// TestCheckFoodPickup verifies the pickup transition: carry capped at
// capacity, source remembered, displacement outside the pickup radius.
func TestCheckFoodPickup(t *testing.T) {
	e, _ := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleForager)
	pos := &components.Position{X: 203, Y: 300}
	vel := &components.Velocity{X: 10, Y: 0}

	taken := e.CheckFoodPickup(pos, vel, ant, 200, 300, 8, 7, 5)
	if taken != 2 {
		t.Fatalf("taken = %v, want capacity-capped 2", taken)
	}
	if ant.State != components.StateReturning {
		t.Errorf("state = %v, want returning", ant.State)
	}
	if ant.CarryAmount != 2 {
		t.Errorf("carry = %v, want 2", ant.CarryAmount)
	}
	if ant.FoodSourceID != 7 {
		t.Errorf("source id = %v, want 7", ant.FoodSourceID)
	}
	if d := distance(pos.X, pos.Y, 200, 300); d < 8 {
		t.Errorf("ant still inside pickup radius: dist %v", d)
	}
	// Colony sits east of the source, so the homeward velocity is +X.
	if vel.X <= 0 {
		t.Errorf("velocity not pointed home: vx = %v", vel.X)
	}

	// A returning ant cannot pick up again.
	if again := e.CheckFoodPickup(pos, vel, ant, 200, 300, 8, 7, 5); again != 0 {
		t.Errorf("second pickup took %v, want 0", again)
	}
}

// TestCheckFoodPickupOutOfRange verifies distance gating.
func TestCheckFoodPickupOutOfRange(t *testing.T) {
	e, _ := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleForager)
	pos := &components.Position{X: 220, Y: 300}
	vel := &components.Velocity{}

	if taken := e.CheckFoodPickup(pos, vel, ant, 200, 300, 8, 7, 5); taken != 0 {
		t.Errorf("out-of-range pickup took %v", taken)
	}
	if ant.State != components.StateForaging {
		t.Error("out-of-range pickup changed state")
	}
}

// TestCheckColonyReturn verifies delivery: carried amount returned to
// the caller, outward dispersal impulse, return cooldown.
func TestCheckColonyReturn(t *testing.T) {
	e, _ := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleForager)
	ant.State = components.StateReturning
	ant.CarryAmount = 2
	ant.FoodSourceID = 7
	pos := &components.Position{X: 810, Y: 500}
	vel := &components.Velocity{X: -20, Y: 0}

	delivered := e.CheckColonyReturn(pos, vel, ant, 24)
	if delivered != 2 {
		t.Fatalf("delivered = %v, want 2", delivered)
	}
	if ant.State != components.StateForaging || ant.CarryAmount != 0 {
		t.Error("delivery did not clear carry state")
	}
	if ant.FoodSourceID != NoSource {
		t.Errorf("source id = %v, want cleared", ant.FoodSourceID)
	}
	if vel.X <= 0 {
		t.Errorf("dispersal not outward: vx = %v", vel.X)
	}
	if ant.JustReturnedCooldown <= 0 {
		t.Error("no just-returned cooldown")
	}

	// Out of range stays untouched.
	ant2 := newTestAnt(components.RoleForager)
	ant2.State = components.StateReturning
	ant2.CarryAmount = 1
	far := &components.Position{X: 700, Y: 500}
	if d := e.CheckColonyReturn(far, vel, ant2, 24); d != 0 {
		t.Errorf("out-of-range return delivered %v", d)
	}
}

// TestSanitizeCarryInvariant verifies the carry/state invariant is
// self-healed at the top of the tick.
func TestSanitizeCarryInvariant(t *testing.T) {
	e, _ := newTestEngine(nil, nil)

	ant := newTestAnt(components.RoleForager)
	ant.State = components.StateReturning
	ant.CarryAmount = 0
	e.sanitize(ant)
	if ant.State != components.StateForaging {
		t.Error("returning with zero carry not healed to foraging")
	}

	ant2 := newTestAnt(components.RoleForager)
	ant2.CarryAmount = 1.5
	e.sanitize(ant2)
	if ant2.State != components.StateReturning {
		t.Error("foraging with carry not healed to returning")
	}
}

// TestStuckRecovery verifies the counter-threshold-recovery sequence
// for an ant with no real movement.
func TestStuckRecovery(t *testing.T) {
	obs := &recordObserver{}
	e, scr := newTestEngine(nil, obs)
	ant := newTestAnt(components.RoleForager)
	ant.FollowingTrail = true
	pos := &components.Position{X: 200, Y: 200}
	vel := &components.Velocity{}

	dt := float32(0.05)
	colonyDist := distance(pos.X, pos.Y, 800, 500)
	steps := int(e.stuckThreshold/dt) + 2
	for i := 0; i < steps; i++ {
		e.updateStuck(pos, vel, ant, 0, colonyDist, dt, scr)
	}

	if obs.recoveries != 1 {
		t.Fatalf("recoveries = %d, want 1", obs.recoveries)
	}
	if ant.StuckCounter != 0 {
		t.Errorf("stuck counter = %v, want reset to 0", ant.StuckCounter)
	}
	if ant.RecoveryCooldown <= 0 || ant.IgnoreTrailCooldown <= 0 {
		t.Error("recovery cooldowns not armed")
	}
	if ant.FollowingTrail {
		t.Error("trail latch survived recovery")
	}
	if magnitude(vel.X, vel.Y) <= 0 {
		t.Error("recovery did not set an escape velocity")
	}

	// Detection is suspended during the cooldown.
	counter := ant.StuckCounter
	e.updateStuck(pos, vel, ant, 0, colonyDist, dt, scr)
	if ant.StuckCounter != counter {
		t.Error("stuck counter advanced during recovery cooldown")
	}
}

// TestStuckCounterDecay verifies the counter only decays on clearly
// good movement.
func TestStuckCounterDecay(t *testing.T) {
	e, scr := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleForager)
	pos := &components.Position{X: 200, Y: 200}
	vel := &components.Velocity{}
	dt := float32(0.05)
	colonyDist := distance(pos.X, pos.Y, 800, 500)
	expected := e.stuckExpectedFactor * ant.MaxSpeed * dt

	ant.StuckCounter = 0.5

	// Marginal movement, just above threshold: no accumulation, no decay.
	e.updateStuck(pos, vel, ant, expected*1.2, colonyDist, dt, scr)
	if ant.StuckCounter != 0.5 {
		t.Errorf("marginal movement changed counter to %v", ant.StuckCounter)
	}

	// Clearly good movement decays it.
	e.updateStuck(pos, vel, ant, expected*3, colonyDist, dt, scr)
	if ant.StuckCounter >= 0.5 {
		t.Errorf("good movement did not decay counter: %v", ant.StuckCounter)
	}
}

// TestReturningStuckWithoutProgress verifies a moving Returning ant
// that makes no progress toward the colony still accumulates stuck time.
func TestReturningStuckWithoutProgress(t *testing.T) {
	e, scr := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleForager)
	ant.State = components.StateReturning
	ant.CarryAmount = 1
	pos := &components.Position{X: 200, Y: 200}
	vel := &components.Velocity{}
	dt := float32(0.05)
	colonyDist := distance(pos.X, pos.Y, 800, 500)
	expected := e.stuckExpectedFactor * ant.MaxSpeed * dt

	// Plenty of movement but the colony distance is unchanged.
	e.updateStuck(pos, vel, ant, expected*3, colonyDist, dt, scr)
	if ant.StuckCounter <= 0 {
		t.Error("circling returning ant did not accumulate stuck time")
	}
}

// TestEnergyDeath verifies energy exhaustion is terminal and emits an
// alarm burst.
func TestEnergyDeath(t *testing.T) {
	obs := &recordObserver{}
	e, scr := newTestEngine(nil, obs)
	ant := newTestAnt(components.RoleForager)
	ant.Energy = 0.001
	pos := &components.Position{X: 200, Y: 200}
	vel := &components.Velocity{X: 30, Y: 0}

	e.Update(pos, vel, ant, 0.05, NewFoodManager(), scr)

	if !ant.Dead {
		t.Fatal("ant survived energy exhaustion")
	}
	if vel.X != 0 || vel.Y != 0 {
		t.Error("dead ant kept velocity")
	}
	if obs.deaths != 1 {
		t.Errorf("deaths observed = %d, want 1", obs.deaths)
	}
	found := false
	for _, d := range scr.Deposits {
		if d.Type == TrailAlarm && d.Amount > 0 {
			found = true
		}
	}
	if !found {
		t.Error("no alarm deposit queued on death")
	}

	// Dead ants are inert.
	pos2 := *pos
	e.Update(pos, vel, ant, 0.05, NewFoodManager(), scr)
	if *pos != pos2 {
		t.Error("dead ant moved")
	}
}

// TestTrailHysteresis verifies latch on strong trail and release below
// the exit threshold after the minimum latch time.
func TestTrailHysteresis(t *testing.T) {
	e, scr := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleForager)
	pos := &components.Position{X: 100, Y: 100}
	noFood := NewFoodManager()

	// A trail running away from the colony (which sits at 800, 500).
	for _, x := range []float32{60, 70, 80, 90, 100} {
		e.field.Deposit(x, 100, TrailFood, 10, 0, NoSource, nil)
	}

	dirX, _, _ := e.foragerSteer(pos, ant, 0.05, noFood, scr)
	if !ant.FollowingTrail {
		t.Fatal("strong trail did not latch")
	}
	if dirX >= 0 {
		t.Errorf("trail steering dirX = %v, want negative (along trail, away from colony)", dirX)
	}

	// Still on strong trail: stays latched.
	weak := &components.Position{X: 90, Y: 100}
	ant.TrailFollowTime = 0
	e.foragerSteer(weak, ant, 0.05, noFood, scr)
	if !ant.FollowingTrail {
		t.Error("latch released while trail still strong")
	}

	// Off the trail past the latch time: released.
	off := &components.Position{X: 400, Y: 800}
	ant.TrailFollowTime = e.trailMinLatch + 1
	e.foragerSteer(off, ant, 0.05, noFood, scr)
	if ant.FollowingTrail {
		t.Error("latch survived a dead trail past the minimum latch time")
	}
}

// TestTrailEnterBelowThreshold verifies weak trails do not latch.
func TestTrailEnterBelowThreshold(t *testing.T) {
	e, scr := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleForager)
	pos := &components.Position{X: 100, Y: 100}

	e.field.Deposit(100, 100, TrailFood, e.trailEnter*0.5, 0, NoSource, nil)
	e.foragerSteer(pos, ant, 0.05, NewFoodManager(), scr)
	if ant.FollowingTrail {
		t.Error("weak trail latched")
	}
}

// TestTrailLock verifies a genuinely followed trail that dead-ends
// triggers the lockout, and a barely-followed one does not.
func TestTrailLock(t *testing.T) {
	obs := &recordObserver{}
	e, _ := newTestEngine(nil, obs)

	ant := newTestAnt(components.RoleForager)
	ant.FollowingTrail = true
	ant.TrailFollowTime = e.trailMinFollowTime + 0.1
	ant.TrailFollowStartX = 100
	ant.TrailFollowStartY = 100
	pos := &components.Position{X: 100 + e.trailMinFollowDist + 5, Y: 100}

	e.abandonTrail(pos, ant)
	if ant.TrailLockCooldown <= 0 {
		t.Error("dead end after real follow did not lock trails")
	}
	if obs.locks != 1 {
		t.Errorf("locks observed = %d, want 1", obs.locks)
	}

	// Barely followed: no lock.
	ant2 := newTestAnt(components.RoleForager)
	ant2.FollowingTrail = true
	ant2.TrailFollowTime = 0.1
	ant2.TrailFollowStartX = 100
	ant2.TrailFollowStartY = 100
	pos2 := &components.Position{X: 105, Y: 100}
	e.abandonTrail(pos2, ant2)
	if ant2.TrailLockCooldown > 0 {
		t.Error("momentary trail contact locked trails")
	}
	if ant2.FollowingTrail {
		t.Error("abandon did not unlatch")
	}
}

// TestLevyStepBounds verifies drawn step lengths respect the clamp.
func TestLevyStepBounds(t *testing.T) {
	e, scr := newTestEngine(nil, nil)
	for i := 0; i < 1000; i++ {
		step := e.levyStep(scr.Rng)
		if step < e.levyMin || step > e.levyMax {
			t.Fatalf("levy step %v outside [%v, %v]", step, e.levyMin, e.levyMax)
		}
	}
}

// TestLevyHeadingOutwardNearColony verifies walk headings near the
// colony point away from it.
func TestLevyHeadingOutwardNearColony(t *testing.T) {
	e, scr := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleScout)
	pos := &components.Position{X: 850, Y: 500} // 50 east of colony

	for i := 0; i < 100; i++ {
		h := e.levyHeading(pos, ant, scr.Rng)
		// Away from colony is +X: heading must stay within a quarter
		// turn of it.
		if math.Abs(float64(normalizeAngle(h))) > math.Pi/2+1e-4 {
			t.Fatalf("heading %v points back toward colony", h)
		}
	}
}

// TestDepositGating verifies deposits are distance gated and returning
// ants tag their food source.
func TestDepositGating(t *testing.T) {
	e, scr := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleForager)
	ant.State = components.StateReturning
	ant.CarryAmount = 1
	ant.FoodSourceID = 3
	pos := &components.Position{X: 200, Y: 200}
	ant.ResetDepositAnchors(pos.X, pos.Y)

	// Too close to the anchor: nothing queued.
	e.depositTrails(pos, ant, scr)
	if len(scr.Deposits) != 0 {
		t.Fatal("deposit inside spacing gate")
	}

	pos.X += e.depositSpacing + 1
	e.depositTrails(pos, ant, scr)
	if len(scr.Deposits) != 1 {
		t.Fatalf("deposits = %d, want 1", len(scr.Deposits))
	}
	d := scr.Deposits[0]
	if d.Type != TrailFood || d.Source != 3 || d.Colony != 0 {
		t.Errorf("deposit = %+v, want tagged food trail", d)
	}

	// Anchor moved: an immediate repeat is gated again.
	e.depositTrails(pos, ant, scr)
	if len(scr.Deposits) != 1 {
		t.Error("repeat deposit without movement")
	}
}

// TestScoutFadeIn verifies scouts lay no home trail near the colony and
// full strength far from it.
func TestScoutFadeIn(t *testing.T) {
	e, scr := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleScout)

	// Inside the fade-in start radius. Anchor far away so only the
	// fade gate can block.
	near := &components.Position{X: 800 + e.scoutFadeInStart - 10, Y: 500}
	ant.ResetDepositAnchors(0, 0)
	e.depositTrails(near, ant, scr)
	if len(scr.Deposits) != 0 {
		t.Fatal("scout deposited inside fade-in radius")
	}

	far := &components.Position{X: 800 + e.scoutFadeInEnd + 50, Y: 500}
	e.depositTrails(far, ant, scr)
	if len(scr.Deposits) != 1 {
		t.Fatal("scout did not deposit beyond fade-in")
	}
	if got := scr.Deposits[0].Amount; got != e.homeTrailScout {
		t.Errorf("far deposit amount = %v, want full %v", got, e.homeTrailScout)
	}
	if scr.Deposits[0].Type != TrailHome {
		t.Error("scout breadcrumb is not home trail")
	}
}

// TestReturningSteerTowardColony verifies the no-trail case points
// straight home.
func TestReturningSteerTowardColony(t *testing.T) {
	e, scr := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleForager)
	ant.State = components.StateReturning
	ant.CarryAmount = 1
	pos := &components.Position{X: 200, Y: 500}

	dirX, dirY, _ := e.returningSteer(pos, ant, scr)
	if dirX <= 0.99 || math.Abs(float64(dirY)) > 0.1 {
		t.Errorf("direction = (%v, %v), want ~(1, 0) toward colony", dirX, dirY)
	}
}

// TestBoundaryReflection verifies velocity reflects off world margins.
func TestBoundaryReflection(t *testing.T) {
	e, _ := newTestEngine(nil, nil)
	ant := newTestAnt(components.RoleForager)
	pos := &components.Position{X: 2, Y: 500}
	vel := &components.Velocity{X: -30, Y: 10}

	e.reflectBoundary(pos, vel, ant)
	if pos.X < e.margin {
		t.Errorf("position outside margin: %v", pos.X)
	}
	if vel.X <= 0 {
		t.Errorf("vx = %v, want reflected positive", vel.X)
	}
	if vel.Y != 10 {
		t.Errorf("vy = %v, want untouched", vel.Y)
	}
}

// TestUpdateInvariants runs a small mixed population for a while and
// checks the state/carry invariant and world bounds hold every tick.
func TestUpdateInvariants(t *testing.T) {
	e, scr := newTestEngine([]Obstacle{
		{Kind: ObstacleCircle, X: 400, Y: 400, Radius: 30},
		{Kind: ObstacleBox, X: 1100, Y: 600, HalfW: 40, HalfH: 20},
	}, nil)

	food := NewFoodManager()
	food.Add(300, 300, 50)
	food.Add(1300, 700, 50)

	type agent struct {
		pos components.Position
		vel components.Velocity
		ant *components.Ant
	}
	var agents []agent
	for i := 0; i < 30; i++ {
		role := components.RoleForager
		if i%5 == 0 {
			role = components.RoleScout
		}
		a := newTestAnt(role)
		a.ID = uint32(i)
		a.Heading = float32(i)
		agents = append(agents, agent{
			pos: components.Position{X: 800 + float32(i%10)*5, Y: 500 + float32(i/10)*5},
			ant: a,
		})
	}

	dt := float32(1.0 / 60.0)
	for tick := 0; tick < 600; tick++ {
		for i := range agents {
			a := &agents[i]
			e.Update(&a.pos, &a.vel, a.ant, dt, food, scr)

			if a.ant.Dead {
				continue
			}
			if a.ant.CarryAmount > 0 && a.ant.State != components.StateReturning {
				t.Fatalf("tick %d ant %d: carrying but not returning", tick, a.ant.ID)
			}
			if a.ant.State == components.StateReturning && a.ant.CarryAmount <= 0 {
				t.Fatalf("tick %d ant %d: returning without carry", tick, a.ant.ID)
			}
			if a.pos.X < 0 || a.pos.X > e.worldW || a.pos.Y < 0 || a.pos.Y > e.worldH {
				t.Fatalf("tick %d ant %d: left the world at (%v, %v)", tick, a.ant.ID, a.pos.X, a.pos.Y)
			}
			if a.pos.X != a.pos.X || a.pos.Y != a.pos.Y {
				t.Fatalf("tick %d ant %d: NaN position", tick, a.ant.ID)
			}
			if speed := magnitude(a.vel.X, a.vel.Y); speed > a.ant.MaxSpeed*1.01 {
				t.Fatalf("tick %d ant %d: speed %v above max %v", tick, a.ant.ID, speed, a.ant.MaxSpeed)
			}
		}
		// Apply queued deposits the way the game loop does.
		for _, d := range scr.Deposits {
			if d.Type == TrailAlarm {
				e.field.DepositAlarm(d.X, d.Y, d.Amount)
				continue
			}
			e.field.Deposit(d.X, d.Y, d.Type, d.Amount, d.Colony, d.Source, e.obstacles)
		}
		scr.Deposits = scr.Deposits[:0]
		e.field.Update(1)
	}
}
