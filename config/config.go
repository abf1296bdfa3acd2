// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Field     FieldConfig     `yaml:"field"`
	Agents    AgentsConfig    `yaml:"agents"`
	Behavior  BehaviorConfig  `yaml:"behavior"`
	Stuck     StuckConfig     `yaml:"stuck"`
	Collision CollisionConfig `yaml:"collision"`
	Colonies  []ColonyConfig  `yaml:"colonies"`
	Economy   EconomyConfig   `yaml:"economy"`
	Food      FoodConfig      `yaml:"food"`
	Obstacles ObstaclesConfig `yaml:"obstacles"`
	Worldgen  WorldgenConfig  `yaml:"worldgen"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds simulation world dimensions and tick parameters.
type WorldConfig struct {
	Width  int     `yaml:"width"`  // World width in world units
	Height int     `yaml:"height"` // World height in world units
	DT     float64 `yaml:"dt"`     // Seconds per tick at 1x speed
	Margin float64 `yaml:"margin"` // Boundary reflection margin
}

// FieldConfig holds chemical field parameters.
type FieldConfig struct {
	CellSize       float64 `yaml:"cell_size"`       // World units per grid cell
	MaxLevel       float64 `yaml:"max_level"`       // Per-cell concentration cap
	MinThreshold   float64 `yaml:"min_threshold"`   // Below this, values snap to 0
	NumColonies    int     `yaml:"num_colonies"`    // Colony channels per trail type
	UpdateInterval float64 `yaml:"update_interval"` // Simulated frames between field passes

	FoodDecay  float64 `yaml:"food_decay"` // Exponential decay rate per pass
	HomeDecay  float64 `yaml:"home_decay"`
	AlarmDecay float64 `yaml:"alarm_decay"`

	FoodDiffuse  float64 `yaml:"food_diffuse"` // 4-neighbor diffusion strength per pass
	HomeDiffuse  float64 `yaml:"home_diffuse"`
	AlarmDiffuse float64 `yaml:"alarm_diffuse"`

	DepletedDecayFactor float64 `yaml:"depleted_decay_factor"` // Decay multiplier for depleted-source cells
	AlarmRadius         float64 `yaml:"alarm_radius"`          // Alarm flood disk radius
	AlarmCapFraction    float64 `yaml:"alarm_cap_fraction"`    // Alarm deposit cap as fraction of max_level
}

// AgentsConfig holds per-role agent parameters.
type AgentsConfig struct {
	Initial       int     `yaml:"initial"`        // Starting population per colony
	ScoutFraction float64 `yaml:"scout_fraction"` // Fraction of spawns that are scouts
	MaxPerColony  int     `yaml:"max_per_colony"` // Population cap per colony
	Radius        float64 `yaml:"radius"`         // Body radius for collision
	MaxSpeed      float64 `yaml:"max_speed"`      // World units per second
	MaxAccel      float64 `yaml:"max_accel"`      // Acceleration toward target speed
	MaxTurnRate   float64 `yaml:"max_turn_rate"`  // Radians per second
	SpeedFloor    float64 `yaml:"speed_floor"`    // Minimum speed fraction after a sharp turn
	HeadingSmooth float64 `yaml:"heading_smooth"` // Blend factor for target heading smoothing

	InitialEnergy  float64 `yaml:"initial_energy"`
	EnergyDrain    float64 `yaml:"energy_drain"`     // Energy per second
	EnergyOnFood   float64 `yaml:"energy_on_food"`   // Restored on pickup
	EnergyOnReturn float64 `yaml:"energy_on_return"` // Restored on delivery
	DTCap          float64 `yaml:"dt_cap"`           // Max dt applied to energy drain

	ForagerVision   float64 `yaml:"forager_vision"`
	ScoutVision     float64 `yaml:"scout_vision"`
	ForagerCapacity float64 `yaml:"forager_capacity"`
	ScoutCapacity   float64 `yaml:"scout_capacity"`
	ScoutSpeedScale float64 `yaml:"scout_speed_scale"` // Scout max-speed multiplier
}

// BehaviorConfig holds steering and trail-following parameters.
type BehaviorConfig struct {
	// Trail-following hysteresis (forager)
	TrailEnter    float64 `yaml:"trail_enter"`     // Enter trail-following above this level
	TrailExit     float64 `yaml:"trail_exit"`      // Exit below this level
	TrailMinLatch float64 `yaml:"trail_min_latch"` // Minimum seconds latched before exit

	// Trail lock (dead-end lockout)
	TrailMinFollowTime     float64 `yaml:"trail_min_follow_time"`     // Gate: seconds before a trail counts as followed
	TrailMinFollowDistance float64 `yaml:"trail_min_follow_distance"` // Gate: distance before a trail counts as followed
	TrailLockDuration      float64 `yaml:"trail_lock_duration"`       // Lockout after a dead-end trail

	ProbeDistance float64 `yaml:"probe_distance"` // 8-direction trail probe distance

	// Forward-cone exploration
	ExploreRays      int     `yaml:"explore_rays"`
	ExploreCone      float64 `yaml:"explore_cone"` // Half-angle of the sensing cone (radians)
	ExploreRayLength float64 `yaml:"explore_ray_length"`
	ExploreTemp      float64 `yaml:"explore_temp"`       // Softmax temperature
	ExploreCommitMin float64 `yaml:"explore_commit_min"` // Seconds committed to a heading
	ExploreCommitMax float64 `yaml:"explore_commit_max"`

	// Scout Levy walk
	LevyMu         float64 `yaml:"levy_mu"` // Power-law exponent (>1)
	LevyScale      float64 `yaml:"levy_scale"`
	LevyMin        float64 `yaml:"levy_min"`
	LevyMax        float64 `yaml:"levy_max"`
	LevyHomeRadius float64 `yaml:"levy_home_radius"` // Within this of colony, bias heading outward

	// Returning gradient blend
	GradientSoftThreshold float64 `yaml:"gradient_soft_threshold"` // Gradient magnitude for half weight
	GradientMaxWeight     float64 `yaml:"gradient_max_weight"`     // Cap on trail-gradient influence

	// Obstacle repulsion
	AvoidRadius        float64 `yaml:"avoid_radius"`
	AvoidStrength      float64 `yaml:"avoid_strength"`
	ScoutAvoidRadius   float64 `yaml:"scout_avoid_radius"` // Scouts only repulse when very close
	ScoutAvoidStrength float64 `yaml:"scout_avoid_strength"`

	// Trail deposit
	DepositSpacing   float64 `yaml:"deposit_spacing"`    // Min distance moved between deposits
	FoodTrailDeposit float64 `yaml:"food_trail_deposit"` // Returning food-trail strength
	HomeTrailForager float64 `yaml:"home_trail_forager"` // Forager home-trail strength
	HomeTrailScout   float64 `yaml:"home_trail_scout"`   // Scout home-trail strength
	ScoutFadeInStart float64 `yaml:"scout_fade_in_start"` // No scout breadcrumbs closer than this
	ScoutFadeInEnd   float64 `yaml:"scout_fade_in_end"`   // Full strength beyond this

	// Colony return
	ReturnCooldown    float64 `yaml:"return_cooldown"`     // "Just returned" suspension, seconds
	DispersalImpulse  float64 `yaml:"dispersal_impulse"`   // Outward speed on delivery
	PickupDisplaceEps float64 `yaml:"pickup_displace_eps"` // Extra displacement beyond pickup radius
}

// StuckConfig holds stuck-detection and recovery parameters.
type StuckConfig struct {
	ExpectedMoveFactor float64 `yaml:"expected_move_factor"` // Fraction of maxSpeed*dt counted as real movement
	ProgressEpsilon    float64 `yaml:"progress_epsilon"`     // Min colony progress per tick for Returning agents
	Threshold          float64 `yaml:"threshold"`            // Seconds stuck before recovery triggers
	DecayFactor        float64 `yaml:"decay_factor"`         // Counter decay rate on clearly-good progress
	RecoveryCooldown   float64 `yaml:"recovery_cooldown"`    // Detection suspended after recovery
	IgnoreTrailTime    float64 `yaml:"ignore_trail_time"`    // Trail following suspended after recovery
	RecoveryJitter     float64 `yaml:"recovery_jitter"`      // Angular jitter on the backward heading (radians)
	RecoverySpeed      float64 `yaml:"recovery_speed"`       // Speed fraction during recovery
}

// CollisionConfig holds swept-collision parameters.
type CollisionConfig struct {
	SkinWidth     float64 `yaml:"skin_width"`
	MaxStepDist   float64 `yaml:"max_step_dist"`  // Sub-step displacement above this
	MaxIterations int     `yaml:"max_iterations"` // Slide iteration cap per sub-step
}

// ColonyConfig places one colony in the world.
type ColonyConfig struct {
	X      float64 `yaml:"x"` // Fraction of world width
	Y      float64 `yaml:"y"` // Fraction of world height
	Radius float64 `yaml:"radius"`
}

// EconomyConfig holds colony food economy parameters.
type EconomyConfig struct {
	SpawnCost    float64 `yaml:"spawn_cost"`    // Food per new agent
	InitialStock float64 `yaml:"initial_stock"` // Starting colony food stock
	RespawnBelow int     `yaml:"respawn_below"` // Respawn when population drops below
}

// FoodConfig holds food source parameters.
type FoodConfig struct {
	Sources      int     `yaml:"sources"`
	AmountMin    float64 `yaml:"amount_min"`
	AmountMax    float64 `yaml:"amount_max"`
	PickupRadius float64 `yaml:"pickup_radius"`
	MinColonyGap float64 `yaml:"min_colony_gap"` // Sources spawn at least this far from colonies
}

// ObstaclesConfig holds obstacle generation parameters.
type ObstaclesConfig struct {
	Count     int     `yaml:"count"`
	RadiusMin float64 `yaml:"radius_min"`
	RadiusMax float64 `yaml:"radius_max"`
}

// WorldgenConfig holds noise-based placement parameters.
type WorldgenConfig struct {
	Seed          int64   `yaml:"seed"`
	NoiseScale    float64 `yaml:"noise_scale"`    // Noise frequency over world coordinates
	ObstacleLevel float64 `yaml:"obstacle_level"` // Place obstacles where noise exceeds this
	FoodLevel     float64 `yaml:"food_level"`     // Place food where noise is below this
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32     float32 // World.DT as float32
	WorldW32 float32
	WorldH32 float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.World.DT)
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)

	// Synthesize a single centered colony if none specified
	if len(c.Colonies) == 0 {
		c.Colonies = []ColonyConfig{
			{X: 0.5, Y: 0.5, Radius: 24},
		}
	}

	// Field channels must cover the configured colonies
	if c.Field.NumColonies < len(c.Colonies) {
		c.Field.NumColonies = len(c.Colonies)
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
