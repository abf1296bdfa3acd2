// Package components defines ECS components for the simulation.
package components

// Role determines an ant's sensing range, trail strength, and carry capacity.
// Fixed at creation.
type Role uint8

const (
	RoleForager Role = iota
	RoleScout
)

// String returns the role name.
func (r Role) String() string {
	if r == RoleScout {
		return "scout"
	}
	return "forager"
}

// State is the behavior state of an ant.
type State uint8

const (
	StateForaging State = iota
	StateReturning
)

// String returns the state name.
func (s State) String() string {
	if s == StateReturning {
		return "returning"
	}
	return "foraging"
}

// Position represents an entity's world position.
type Position struct {
	X, Y float32
}

// Velocity represents an entity's velocity.
type Velocity struct {
	X, Y float32
}

// Ant holds per-agent state for the behavior engine.
type Ant struct {
	ID       uint32
	ColonyID uint8
	Role     Role
	State    State

	Heading float32 // Radians
	Energy  float32
	Age     float32
	Dead    bool

	// Food carry
	CarryAmount   float32
	CarryCapacity float32
	FoodSourceID  int32 // Source being harvested, -1 when none

	// Role capabilities (set at spawn from config)
	VisionRange float32
	MaxSpeed    float32

	// Cooldown timers (seconds, decremented each tick)
	RecoveryCooldown    float32 // Stuck detection suspended
	IgnoreTrailCooldown float32 // Trail following suspended
	TrailLockCooldown   float32 // Lockout after a dead-end trail
	JustReturnedCooldown float32 // Behavior suspended right after delivery

	// Trail-following hysteresis latch
	FollowingTrail    bool
	TrailFollowTime   float32
	TrailFollowStartX float32
	TrailFollowStartY float32

	// Exploration commitment (foragers)
	ExploreTimer   float32
	ExploreHeading float32

	// Levy walk (scouts)
	LevyRemaining float32
	LevyHeading   float32

	// Deposit spacing anchors, one per trail type
	LastFoodDepositX float32
	LastFoodDepositY float32
	LastHomeDepositX float32
	LastHomeDepositY float32

	// Stuck detection
	StuckCounter      float32
	PrevX, PrevY      float32 // Position at the start of the previous tick
	PrevColonyDist    float32
	DepenetrationDist float32 // Physics push-out this tick, not real locomotion
}

// ResetTrailState clears trail-following and exploration commitments.
func (a *Ant) ResetTrailState() {
	a.FollowingTrail = false
	a.TrailFollowTime = 0
	a.ExploreTimer = 0
	a.LevyRemaining = 0
}

// ResetDepositAnchors re-bases deposit spacing at the given position.
func (a *Ant) ResetDepositAnchors(x, y float32) {
	a.LastFoodDepositX = x
	a.LastFoodDepositY = y
	a.LastHomeDepositX = x
	a.LastHomeDepositY = y
}
