package systems

import (
	"math"
	"math/rand"

	"formic/components"
	"formic/config"
)

// ColonySite is a colony's fixed placement in the world.
type ColonySite struct {
	ID     int
	X, Y   float32
	Radius float32
}

// DepositRequest is a queued field write produced during the agent
// phase and applied single-threaded afterwards. TrailAlarm requests
// carry intensity in Amount and ignore Colony and Source.
type DepositRequest struct {
	X, Y   float32
	Type   TrailType
	Amount float32
	Colony int
	Source int32
}

// BehaviorObserver receives notable per-agent events. Implementations
// must be cheap; calls come from the hot loop.
type BehaviorObserver interface {
	StuckRecovery(ant *components.Ant)
	TrailLock(ant *components.Ant)
	AgentDied(ant *components.Ant)
}

type nopObserver struct{}

func (nopObserver) StuckRecovery(*components.Ant) {}
func (nopObserver) TrailLock(*components.Ant)     {}
func (nopObserver) AgentDied(*components.Ant)     {}

// AgentScratch is per-worker state for the agent phase: a private rng,
// the deposit queue, and a reusable obstacle query buffer.
type AgentScratch struct {
	Rng         *rand.Rand
	Deposits    []DepositRequest
	obstacleBuf []int
}

func NewAgentScratch(seed int64) *AgentScratch {
	return &AgentScratch{Rng: rand.New(rand.NewSource(seed))}
}

// deathAlarmFraction scales the alarm burst emitted when an ant dies.
const deathAlarmFraction = 0.5

// BehaviorEngine drives the per-ant state machine. It reads the field,
// obstacles, and food sources, and mutates only the ant handed to it,
// so distinct ants can be updated concurrently. Field writes are queued
// on the scratch and applied by the caller.
type BehaviorEngine struct {
	cfg       *config.Config
	field     *ChemicalField
	obstacles ObstacleIndex
	resolver  *CollisionResolver
	colonies  []ColonySite
	observer  BehaviorObserver

	worldW, worldH float32
	margin         float32
	agentRadius    float32

	maxAccel      float32
	maxTurnRate   float32
	speedFloor    float32
	headingSmooth float32

	energyDrain    float32
	energyOnFood   float32
	energyOnReturn float32
	energyMax      float32
	dtCap          float32

	trailEnter    float32
	trailExit     float32
	trailMinLatch float32

	trailMinFollowTime float32
	trailMinFollowDist float32
	trailLockDuration  float32

	probeDistance float32

	exploreRays      int
	exploreCone      float32
	exploreRayLength float32
	exploreTemp      float32
	exploreCommitMin float32
	exploreCommitMax float32

	levyMu         float32
	levyScale      float32
	levyMin        float32
	levyMax        float32
	levyHomeRadius float32

	gradSoftThreshold float32
	gradMaxWeight     float32

	avoidRadius        float32
	avoidStrength      float32
	scoutAvoidRadius   float32
	scoutAvoidStrength float32

	depositSpacing   float32
	foodTrailDeposit float32
	homeTrailForager float32
	homeTrailScout   float32
	scoutFadeInStart float32
	scoutFadeInEnd   float32

	returnCooldown    float32
	dispersalImpulse  float32
	pickupDisplaceEps float32

	stuckExpectedFactor float32
	stuckProgressEps    float32
	stuckThreshold      float32
	stuckDecay          float32
	recoveryCooldown    float32
	ignoreTrailTime     float32
	recoveryJitter      float32
	recoverySpeed       float32

	deathAlarm float32
}

// NewBehaviorEngine creates the engine. observer may be nil.
func NewBehaviorEngine(cfg *config.Config, field *ChemicalField, obstacles ObstacleIndex, resolver *CollisionResolver, colonies []ColonySite, observer BehaviorObserver) *BehaviorEngine {
	if observer == nil {
		observer = nopObserver{}
	}
	b := &cfg.Behavior
	s := &cfg.Stuck
	a := &cfg.Agents
	return &BehaviorEngine{
		cfg:       cfg,
		field:     field,
		obstacles: obstacles,
		resolver:  resolver,
		colonies:  colonies,
		observer:  observer,

		worldW:      cfg.Derived.WorldW32,
		worldH:      cfg.Derived.WorldH32,
		margin:      float32(cfg.World.Margin),
		agentRadius: float32(a.Radius),

		maxAccel:      float32(a.MaxAccel),
		maxTurnRate:   float32(a.MaxTurnRate),
		speedFloor:    float32(a.SpeedFloor),
		headingSmooth: float32(a.HeadingSmooth),

		energyDrain:    float32(a.EnergyDrain),
		energyOnFood:   float32(a.EnergyOnFood),
		energyOnReturn: float32(a.EnergyOnReturn),
		energyMax:      float32(a.InitialEnergy),
		dtCap:          float32(a.DTCap),

		trailEnter:    float32(b.TrailEnter),
		trailExit:     float32(b.TrailExit),
		trailMinLatch: float32(b.TrailMinLatch),

		trailMinFollowTime: float32(b.TrailMinFollowTime),
		trailMinFollowDist: float32(b.TrailMinFollowDistance),
		trailLockDuration:  float32(b.TrailLockDuration),

		probeDistance: float32(b.ProbeDistance),

		exploreRays:      b.ExploreRays,
		exploreCone:      float32(b.ExploreCone),
		exploreRayLength: float32(b.ExploreRayLength),
		exploreTemp:      float32(b.ExploreTemp),
		exploreCommitMin: float32(b.ExploreCommitMin),
		exploreCommitMax: float32(b.ExploreCommitMax),

		levyMu:         float32(b.LevyMu),
		levyScale:      float32(b.LevyScale),
		levyMin:        float32(b.LevyMin),
		levyMax:        float32(b.LevyMax),
		levyHomeRadius: float32(b.LevyHomeRadius),

		gradSoftThreshold: float32(b.GradientSoftThreshold),
		gradMaxWeight:     float32(b.GradientMaxWeight),

		avoidRadius:        float32(b.AvoidRadius),
		avoidStrength:      float32(b.AvoidStrength),
		scoutAvoidRadius:   float32(b.ScoutAvoidRadius),
		scoutAvoidStrength: float32(b.ScoutAvoidStrength),

		depositSpacing:   float32(b.DepositSpacing),
		foodTrailDeposit: float32(b.FoodTrailDeposit),
		homeTrailForager: float32(b.HomeTrailForager),
		homeTrailScout:   float32(b.HomeTrailScout),
		scoutFadeInStart: float32(b.ScoutFadeInStart),
		scoutFadeInEnd:   float32(b.ScoutFadeInEnd),

		returnCooldown:    float32(b.ReturnCooldown),
		dispersalImpulse:  float32(b.DispersalImpulse),
		pickupDisplaceEps: float32(b.PickupDisplaceEps),

		stuckExpectedFactor: float32(s.ExpectedMoveFactor),
		stuckProgressEps:    float32(s.ProgressEpsilon),
		stuckThreshold:      float32(s.Threshold),
		stuckDecay:          float32(s.DecayFactor),
		recoveryCooldown:    float32(s.RecoveryCooldown),
		ignoreTrailTime:     float32(s.IgnoreTrailTime),
		recoveryJitter:      float32(s.RecoveryJitter),
		recoverySpeed:       float32(s.RecoverySpeed),

		deathAlarm: float32(cfg.Field.MaxLevel) * deathAlarmFraction,
	}
}

func (e *BehaviorEngine) colony(ant *components.Ant) *ColonySite {
	return &e.colonies[ant.ColonyID]
}

// Update runs one tick of the state machine for a single ant: sanitize,
// energy, role/state steering, collision-resolved integration, stuck
// handling, trail deposits, boundary reflection. dt is already speed
// adjusted.
func (e *BehaviorEngine) Update(pos *components.Position, vel *components.Velocity, ant *components.Ant, dt float32, food FoodView, scr *AgentScratch) {
	if ant.Dead || dt <= 0 {
		return
	}

	e.sanitize(ant)

	ant.Age += dt
	drainDT := dt
	if drainDT > e.dtCap {
		drainDT = e.dtCap
	}
	ant.Energy -= e.energyDrain * drainDT
	if ant.Energy <= 0 {
		e.kill(pos, vel, ant, scr)
		return
	}

	if speed := magnitude(vel.X, vel.Y); speed > ant.MaxSpeed {
		inv := ant.MaxSpeed / speed
		vel.X *= inv
		vel.Y *= inv
	}

	tickCooldowns(ant, dt)

	prevX, prevY := pos.X, pos.Y
	colonyDistBefore := distance(pos.X, pos.Y, e.colony(ant).X, e.colony(ant).Y)

	if ant.JustReturnedCooldown <= 0 {
		var dirX, dirY, speedFrac float32
		switch {
		case ant.State == components.StateReturning:
			dirX, dirY, speedFrac = e.returningSteer(pos, ant, scr)
		case ant.Role == components.RoleScout:
			dirX, dirY, speedFrac = e.scoutSteer(pos, ant, dt, food, scr)
		default:
			dirX, dirY, speedFrac = e.foragerSteer(pos, ant, dt, food, scr)
		}
		e.applySteering(vel, ant, dirX, dirY, speedFrac, dt)
	}

	res, buf := e.resolver.Resolve(pos.X, pos.Y, vel.X, vel.Y, e.agentRadius, dt, e.obstacles, scr.obstacleBuf)
	scr.obstacleBuf = buf
	pos.X, pos.Y = res.X, res.Y
	vel.X, vel.Y = res.VelX, res.VelY
	ant.DepenetrationDist = res.DepenetrationDist

	realMove := distance(pos.X, pos.Y, prevX, prevY) - ant.DepenetrationDist
	if realMove < 0 {
		realMove = 0
	}

	if ant.Role == components.RoleScout && ant.State == components.StateForaging {
		ant.LevyRemaining -= realMove
	}

	e.updateStuck(pos, vel, ant, realMove, colonyDistBefore, dt, scr)

	e.depositTrails(pos, ant, scr)

	e.reflectBoundary(pos, vel, ant)

	ant.PrevX, ant.PrevY = pos.X, pos.Y
	ant.PrevColonyDist = distance(pos.X, pos.Y, e.colony(ant).X, e.colony(ant).Y)
}

// sanitize self-heals the carry/state invariant instead of failing:
// carrying implies Returning and Returning implies carrying.
func (e *BehaviorEngine) sanitize(ant *components.Ant) {
	if ant.State == components.StateReturning && ant.CarryAmount <= 0 {
		ant.State = components.StateForaging
		ant.CarryAmount = 0
		ant.FoodSourceID = NoSource
	}
	if ant.State == components.StateForaging && ant.CarryAmount > 0 {
		ant.State = components.StateReturning
	}
}

func (e *BehaviorEngine) kill(pos *components.Position, vel *components.Velocity, ant *components.Ant, scr *AgentScratch) {
	ant.Dead = true
	ant.Energy = 0
	vel.X, vel.Y = 0, 0
	scr.Deposits = append(scr.Deposits, DepositRequest{
		X: pos.X, Y: pos.Y, Type: TrailAlarm, Amount: e.deathAlarm,
	})
	e.observer.AgentDied(ant)
}

func tickCooldowns(ant *components.Ant, dt float32) {
	if ant.RecoveryCooldown > 0 {
		ant.RecoveryCooldown -= dt
	}
	if ant.IgnoreTrailCooldown > 0 {
		ant.IgnoreTrailCooldown -= dt
	}
	if ant.TrailLockCooldown > 0 {
		ant.TrailLockCooldown -= dt
	}
	if ant.JustReturnedCooldown > 0 {
		ant.JustReturnedCooldown -= dt
	}
	if ant.ExploreTimer > 0 {
		ant.ExploreTimer -= dt
	}
}

// returningSteer blends the direct-to-colony vector with the home-trail
// gradient. Gradient magnitude passes through a soft threshold so weak
// or ambiguous trails defer to the direct vector.
func (e *BehaviorEngine) returningSteer(pos *components.Position, ant *components.Ant, scr *AgentScratch) (float32, float32, float32) {
	c := e.colony(ant)
	homeX, homeY := normalize(c.X-pos.X, c.Y-pos.Y)

	dirX, dirY := homeX, homeY
	if ant.IgnoreTrailCooldown <= 0 {
		gx, gy := e.field.Gradient(pos.X, pos.Y, TrailHome, int(ant.ColonyID))
		gmag := magnitude(gx, gy)
		if gmag > 1e-6 {
			w := gmag / (gmag + e.gradSoftThreshold)
			if w > e.gradMaxWeight {
				w = e.gradMaxWeight
			}
			dirX = homeX*(1-w) + gx/gmag*w
			dirY = homeY*(1-w) + gy/gmag*w
		}
	}

	ax, ay := e.avoidObstacles(pos, scr, e.avoidRadius, e.avoidStrength)
	dirX, dirY = normalize(dirX+ax, dirY+ay)
	return dirX, dirY, 1
}

// foragerSteer priority: visible food, then trail following with
// hysteresis, then committed cone exploration.
func (e *BehaviorEngine) foragerSteer(pos *components.Position, ant *components.Ant, dt float32, food FoodView, scr *AgentScratch) (float32, float32, float32) {
	if s := food.Near(pos.X, pos.Y, ant.VisionRange); s != nil {
		ant.FollowingTrail = false
		dx, dy := normalize(s.X-pos.X, s.Y-pos.Y)
		ax, ay := e.avoidObstacles(pos, scr, e.avoidRadius, e.avoidStrength)
		dx, dy = normalize(dx+ax, dy+ay)
		return dx, dy, 1
	}

	trailsBlocked := ant.IgnoreTrailCooldown > 0 || ant.TrailLockCooldown > 0
	if trailsBlocked {
		ant.FollowingTrail = false
	}

	if !trailsBlocked {
		level := e.field.Sample(pos.X, pos.Y, TrailFood, int(ant.ColonyID))

		if !ant.FollowingTrail && level >= e.trailEnter {
			ant.FollowingTrail = true
			ant.TrailFollowTime = 0
			ant.TrailFollowStartX = pos.X
			ant.TrailFollowStartY = pos.Y
			ant.ExploreTimer = 0
		}

		if ant.FollowingTrail {
			ant.TrailFollowTime += dt

			if level < e.trailExit && ant.TrailFollowTime >= e.trailMinLatch {
				e.abandonTrail(pos, ant)
			} else if dx, dy, ok := e.probeTrail(pos, ant); ok {
				ax, ay := e.avoidObstacles(pos, scr, e.avoidRadius, e.avoidStrength)
				dx, dy = normalize(dx+ax, dy+ay)
				return dx, dy, 1
			} else {
				// Every outward probe came up empty: dead end.
				e.abandonTrail(pos, ant)
			}
		}
	}

	if ant.ExploreTimer <= 0 {
		ant.ExploreHeading = e.pickExploreHeading(pos, ant, scr.Rng)
		ant.ExploreTimer = e.exploreCommitMin + scr.Rng.Float32()*(e.exploreCommitMax-e.exploreCommitMin)
	}
	dx, dy := cos32(ant.ExploreHeading), sin32(ant.ExploreHeading)
	ax, ay := e.avoidObstacles(pos, scr, e.avoidRadius, e.avoidStrength)
	dx, dy = normalize(dx+ax, dy+ay)
	return dx, dy, 1
}

// abandonTrail unlatches, and locks trail following for a while when
// the trail was genuinely followed (time and distance gates) so the ant
// does not immediately re-enter the same dead end.
func (e *BehaviorEngine) abandonTrail(pos *components.Position, ant *components.Ant) {
	followed := ant.TrailFollowTime >= e.trailMinFollowTime &&
		distance(pos.X, pos.Y, ant.TrailFollowStartX, ant.TrailFollowStartY) >= e.trailMinFollowDist
	ant.FollowingTrail = false
	ant.TrailFollowTime = 0
	if followed {
		ant.TrailLockCooldown = e.trailLockDuration
		e.observer.TrailLock(ant)
	}
}

// probeTrail samples 8 radial directions and returns the strongest
// food-trail direction that also leads away from the colony.
func (e *BehaviorEngine) probeTrail(pos *components.Position, ant *components.Ant) (float32, float32, bool) {
	c := e.colony(ant)
	homeDistSq := distanceSq(pos.X, pos.Y, c.X, c.Y)

	var bestX, bestY, bestLevel float32
	found := false
	for i := 0; i < 8; i++ {
		ang := float32(i) * (math.Pi / 4)
		px := pos.X + cos32(ang)*e.probeDistance
		py := pos.Y + sin32(ang)*e.probeDistance
		if distanceSq(px, py, c.X, c.Y) <= homeDistSq {
			continue
		}
		level := e.field.Sample(px, py, TrailFood, int(ant.ColonyID))
		if level > bestLevel {
			bestLevel = level
			bestX, bestY = px, py
			found = true
		}
	}
	if !found || bestLevel <= 0 {
		return 0, 0, false
	}
	dx, dy := normalize(bestX-pos.X, bestY-pos.Y)
	return dx, dy, true
}

// pickExploreHeading softmax-selects a heading from forward-cone rays
// scored by food-trail level at the ray tip. Rays ending inside an
// obstacle are heavily penalized.
func (e *BehaviorEngine) pickExploreHeading(pos *components.Position, ant *components.Ant, rng *rand.Rand) float32 {
	n := e.exploreRays
	if n < 2 {
		return normalizeAngle(ant.Heading + (rng.Float32()*2-1)*e.exploreCone)
	}

	angles := make([]float32, n)
	scores := make([]float32, n)
	maxScore := float32(math.Inf(-1))
	for i := 0; i < n; i++ {
		frac := float32(i)/float32(n-1)*2 - 1
		ang := normalizeAngle(ant.Heading + frac*e.exploreCone)
		px := pos.X + cos32(ang)*e.exploreRayLength
		py := pos.Y + sin32(ang)*e.exploreRayLength

		score := e.field.Sample(px, py, TrailFood, int(ant.ColonyID))
		if e.obstacles.CheckCollision(px, py, e.agentRadius) != nil {
			score -= 100
		}
		if px < e.margin || px > e.worldW-e.margin || py < e.margin || py > e.worldH-e.margin {
			score -= 100
		}

		angles[i] = ang
		scores[i] = score
		if score > maxScore {
			maxScore = score
		}
	}

	var total float32
	for i := range scores {
		scores[i] = float32(math.Exp(float64((scores[i] - maxScore) / e.exploreTemp)))
		total += scores[i]
	}

	r := rng.Float32() * total
	for i := range scores {
		r -= scores[i]
		if r <= 0 {
			return angles[i]
		}
	}
	return angles[n-1]
}

// scoutSteer priority: visible food, then a Levy walk. Scouts only
// repulse from obstacles at close range.
func (e *BehaviorEngine) scoutSteer(pos *components.Position, ant *components.Ant, dt float32, food FoodView, scr *AgentScratch) (float32, float32, float32) {
	if s := food.Near(pos.X, pos.Y, ant.VisionRange); s != nil {
		dx, dy := normalize(s.X-pos.X, s.Y-pos.Y)
		ax, ay := e.avoidObstacles(pos, scr, e.scoutAvoidRadius, e.scoutAvoidStrength)
		dx, dy = normalize(dx+ax, dy+ay)
		return dx, dy, 1
	}

	if ant.LevyRemaining <= 0 {
		ant.LevyRemaining = e.levyStep(scr.Rng)
		ant.LevyHeading = e.levyHeading(pos, ant, scr.Rng)
	}

	dx, dy := cos32(ant.LevyHeading), sin32(ant.LevyHeading)
	ax, ay := e.avoidObstacles(pos, scr, e.scoutAvoidRadius, e.scoutAvoidStrength)
	dx, dy = normalize(dx+ax, dy+ay)
	return dx, dy, 1
}

// levyStep draws a power-law step length, clamped to [levyMin, levyMax].
func (e *BehaviorEngine) levyStep(rng *rand.Rand) float32 {
	u := rng.Float32()
	if u >= 1 {
		u = 0.9999999
	}
	step := e.levyScale * float32(math.Pow(float64(1-u), float64(-1/(e.levyMu-1))))
	return clamp32(step, e.levyMin, e.levyMax)
}

// levyHeading picks a new walk heading, biased away from the colony
// when close to it and uniform otherwise.
func (e *BehaviorEngine) levyHeading(pos *components.Position, ant *components.Ant, rng *rand.Rand) float32 {
	c := e.colony(ant)
	if distance(pos.X, pos.Y, c.X, c.Y) < e.levyHomeRadius {
		away := atan2_32(pos.Y-c.Y, pos.X-c.X)
		return normalizeAngle(away + (rng.Float32()*2-1)*(math.Pi/2))
	}
	return rng.Float32()*2*math.Pi - math.Pi
}

// depositTrails lays distance-gated trail. Returning ants lay food
// trail tagged with their source; foraging ants lay home trail, scouts
// with a fade-in away from the colony and a higher strength.
func (e *BehaviorEngine) depositTrails(pos *components.Position, ant *components.Ant, scr *AgentScratch) {
	if ant.State == components.StateReturning {
		if distance(pos.X, pos.Y, ant.LastFoodDepositX, ant.LastFoodDepositY) < e.depositSpacing {
			return
		}
		ant.LastFoodDepositX = pos.X
		ant.LastFoodDepositY = pos.Y
		scr.Deposits = append(scr.Deposits, DepositRequest{
			X: pos.X, Y: pos.Y,
			Type:   TrailFood,
			Amount: e.foodTrailDeposit,
			Colony: int(ant.ColonyID),
			Source: ant.FoodSourceID,
		})
		return
	}

	if distance(pos.X, pos.Y, ant.LastHomeDepositX, ant.LastHomeDepositY) < e.depositSpacing {
		return
	}

	amount := e.homeTrailForager
	if ant.Role == components.RoleScout {
		c := e.colony(ant)
		d := distance(pos.X, pos.Y, c.X, c.Y)
		if d <= e.scoutFadeInStart {
			return
		}
		fade := clamp01((d - e.scoutFadeInStart) / (e.scoutFadeInEnd - e.scoutFadeInStart))
		amount = e.homeTrailScout * fade
	}

	ant.LastHomeDepositX = pos.X
	ant.LastHomeDepositY = pos.Y
	scr.Deposits = append(scr.Deposits, DepositRequest{
		X: pos.X, Y: pos.Y,
		Type:   TrailHome,
		Amount: amount,
		Colony: int(ant.ColonyID),
		Source: NoSource,
	})
}

// reflectBoundary bounces the velocity component that crossed a world
// margin and clamps the position back inside.
func (e *BehaviorEngine) reflectBoundary(pos *components.Position, vel *components.Velocity, ant *components.Ant) {
	bounced := false
	if pos.X < e.margin {
		pos.X = e.margin
		if vel.X < 0 {
			vel.X = -vel.X
		}
		bounced = true
	} else if pos.X > e.worldW-e.margin {
		pos.X = e.worldW - e.margin
		if vel.X > 0 {
			vel.X = -vel.X
		}
		bounced = true
	}
	if pos.Y < e.margin {
		pos.Y = e.margin
		if vel.Y < 0 {
			vel.Y = -vel.Y
		}
		bounced = true
	} else if pos.Y > e.worldH-e.margin {
		pos.Y = e.worldH - e.margin
		if vel.Y > 0 {
			vel.Y = -vel.Y
		}
		bounced = true
	}
	if bounced {
		ant.Heading = atan2_32(vel.Y, vel.X)
		ant.ExploreTimer = 0
	}
}

// CheckFoodPickup attempts a pickup against one source and returns the
// amount taken (0 when out of range or not foraging). On success the
// ant transitions to Returning, is displaced just outside the pickup
// radius, and is pointed home. The caller decrements the source by the
// returned amount.
func (e *BehaviorEngine) CheckFoodPickup(pos *components.Position, vel *components.Velocity, ant *components.Ant, foodX, foodY, radius float32, sourceID int32, available float32) float32 {
	if ant.Dead || ant.State != components.StateForaging || available <= 0 {
		return 0
	}
	if distanceSq(pos.X, pos.Y, foodX, foodY) > radius*radius {
		return 0
	}

	take := ant.CarryCapacity
	if take > available {
		take = available
	}

	ant.CarryAmount = take
	ant.FoodSourceID = sourceID
	ant.State = components.StateReturning
	ant.Energy = clamp32(ant.Energy+e.energyOnFood, 0, e.energyMax)
	ant.ResetTrailState()
	ant.ResetDepositAnchors(pos.X, pos.Y)

	// Displace just outside the pickup radius so the next tick does not
	// re-trigger against the same source.
	ox, oy := normalize(pos.X-foodX, pos.Y-foodY)
	if ox == 0 && oy == 0 {
		ox, oy = cos32(ant.Heading), sin32(ant.Heading)
	}
	pos.X = foodX + ox*(radius+e.pickupDisplaceEps)
	pos.Y = foodY + oy*(radius+e.pickupDisplaceEps)

	c := e.colony(ant)
	hx, hy := normalize(c.X-pos.X, c.Y-pos.Y)
	ant.Heading = atan2_32(hy, hx)
	speed := magnitude(vel.X, vel.Y)
	if speed < ant.MaxSpeed*e.speedFloor {
		speed = ant.MaxSpeed * e.speedFloor
	}
	vel.X = hx * speed
	vel.Y = hy * speed

	return take
}

// CheckColonyReturn delivers the carried food when the ant is within
// radius of its colony center and returns the delivered amount. On
// success the ant flips to Foraging, gets an outward dispersal impulse,
// and sits out a short cooldown.
func (e *BehaviorEngine) CheckColonyReturn(pos *components.Position, vel *components.Velocity, ant *components.Ant, radius float32) float32 {
	if ant.Dead || ant.State != components.StateReturning {
		return 0
	}
	c := e.colony(ant)
	if radius <= 0 {
		radius = c.Radius
	}
	if distanceSq(pos.X, pos.Y, c.X, c.Y) > radius*radius {
		return 0
	}

	delivered := ant.CarryAmount
	ant.CarryAmount = 0
	ant.FoodSourceID = NoSource
	ant.State = components.StateForaging
	ant.Energy = clamp32(ant.Energy+e.energyOnReturn, 0, e.energyMax)
	ant.ResetTrailState()
	ant.ResetDepositAnchors(pos.X, pos.Y)

	ox, oy := normalize(pos.X-c.X, pos.Y-c.Y)
	if ox == 0 && oy == 0 {
		ox, oy = cos32(ant.Heading), sin32(ant.Heading)
	}
	vel.X = ox * e.dispersalImpulse
	vel.Y = oy * e.dispersalImpulse
	ant.Heading = atan2_32(oy, ox)
	ant.JustReturnedCooldown = e.returnCooldown

	return delivered
}
