// Package systems contains the simulation systems: chemical field,
// collision resolution, spatial indexing, and agent behavior.
package systems

import (
	"math"

	"formic/config"
)

// TrailType selects a chemical channel.
type TrailType uint8

const (
	TrailFood TrailType = iota
	TrailHome
	TrailAlarm
)

// NoSource marks a food-trail cell with no associated food source.
const NoSource int32 = -1

// ChemicalField is a grid of decaying, diffusing trail concentrations.
// Food and home trails are channel-indexed by colony; alarm is shared.
// Cell (cx, cy) holds the concentration at world point (cx*cellSize, cy*cellSize);
// deposits and samples are bilinear over the four surrounding cells.
type ChemicalField struct {
	W, H     int
	cellSize float32

	numColonies int
	food        [][]float32 // per colony
	home        [][]float32 // per colony
	alarm       []float32
	sourceTag   []int32 // food source a cell's food trail leads to, NoSource if none

	depleted map[int32]struct{}

	maxLevel     float32
	minThreshold float32

	foodDecay, homeDecay, alarmDecay       float32
	foodDiffuse, homeDiffuse, alarmDiffuse float32
	depletedFactor                         float32
	alarmRadius                            float32
	alarmCap                               float32

	// Scratch buffer for double-buffered diffusion
	tmp []float32

	frameAccum     float32
	updateInterval float32
}

// NewChemicalField creates a field covering worldW x worldH world units.
func NewChemicalField(worldW, worldH float32, cfg *config.FieldConfig) *ChemicalField {
	cellSize := float32(cfg.CellSize)
	w := int(worldW/cellSize) + 1
	h := int(worldH/cellSize) + 1

	nc := cfg.NumColonies
	if nc < 1 {
		nc = 1
	}

	f := &ChemicalField{
		W: w, H: h,
		cellSize:    cellSize,
		numColonies: nc,
		food:        make([][]float32, nc),
		home:        make([][]float32, nc),
		alarm:       make([]float32, w*h),
		sourceTag:   make([]int32, w*h),
		depleted:    make(map[int32]struct{}),
		tmp:         make([]float32, w*h),

		maxLevel:     float32(cfg.MaxLevel),
		minThreshold: float32(cfg.MinThreshold),

		foodDecay:  float32(cfg.FoodDecay),
		homeDecay:  float32(cfg.HomeDecay),
		alarmDecay: float32(cfg.AlarmDecay),

		foodDiffuse:  float32(cfg.FoodDiffuse),
		homeDiffuse:  float32(cfg.HomeDiffuse),
		alarmDiffuse: float32(cfg.AlarmDiffuse),

		depletedFactor: float32(cfg.DepletedDecayFactor),
		alarmRadius:    float32(cfg.AlarmRadius),
		alarmCap:       float32(cfg.AlarmCapFraction) * float32(cfg.MaxLevel),

		updateInterval: float32(cfg.UpdateInterval),
	}
	for c := 0; c < nc; c++ {
		f.food[c] = make([]float32, w*h)
		f.home[c] = make([]float32, w*h)
	}
	for i := range f.sourceTag {
		f.sourceTag[i] = NoSource
	}
	return f
}

// CellSize returns the world size of one grid cell.
func (f *ChemicalField) CellSize() float32 { return f.cellSize }

// channel returns the grid for a trail type and colony, or nil when out of range.
func (f *ChemicalField) channel(typ TrailType, colony int) []float32 {
	switch typ {
	case TrailFood:
		if colony < 0 || colony >= f.numColonies {
			return nil
		}
		return f.food[colony]
	case TrailHome:
		if colony < 0 || colony >= f.numColonies {
			return nil
		}
		return f.home[colony]
	case TrailAlarm:
		return f.alarm
	}
	return nil
}

// Deposit splats amount across the four cells surrounding (x, y) using
// bilinear weights. Cells whose center lies inside an obstacle are skipped,
// so trails never thread through solid obstacles. Out-of-range coordinates
// are silently ignored. sourceID tags food-trail cells for accelerated
// decay when the source later depletes; pass NoSource otherwise.
func (f *ChemicalField) Deposit(x, y float32, typ TrailType, amount float32, colony int, sourceID int32, obs ObstacleIndex) {
	grid := f.channel(typ, colony)
	if grid == nil || amount <= 0 {
		return
	}

	fx := x / f.cellSize
	fy := y / f.cellSize
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	w00 := (1 - tx) * (1 - ty)
	w10 := tx * (1 - ty)
	w01 := (1 - tx) * ty
	w11 := tx * ty

	f.depositCell(grid, x0, y0, amount*w00, typ, sourceID, obs)
	f.depositCell(grid, x0+1, y0, amount*w10, typ, sourceID, obs)
	f.depositCell(grid, x0, y0+1, amount*w01, typ, sourceID, obs)
	f.depositCell(grid, x0+1, y0+1, amount*w11, typ, sourceID, obs)
}

// depositCell adds share to a single cell, honoring bounds, obstacle
// blocking, and the level cap.
func (f *ChemicalField) depositCell(grid []float32, cx, cy int, share float32, typ TrailType, sourceID int32, obs ObstacleIndex) {
	if share <= 0 || cx < 0 || cy < 0 || cx >= f.W || cy >= f.H {
		return
	}
	if obs != nil {
		wx := float32(cx) * f.cellSize
		wy := float32(cy) * f.cellSize
		if obs.CheckCollision(wx, wy, 0) != nil {
			return
		}
	}
	i := cy*f.W + cx
	v := grid[i] + share
	if v > f.maxLevel {
		v = f.maxLevel
	}
	grid[i] = v
	if typ == TrailFood && sourceID != NoSource {
		f.sourceTag[i] = sourceID
	}
}

// DepositAlarm floods a disk around (x, y) with linearly falling-off
// intensity. Deposits are capped below MaxLevel to leave headroom for
// diffusion pressure.
func (f *ChemicalField) DepositAlarm(x, y, intensity float32) {
	if intensity <= 0 {
		return
	}
	r := f.alarmRadius
	cx0 := int(math.Floor(float64((x - r) / f.cellSize)))
	cy0 := int(math.Floor(float64((y - r) / f.cellSize)))
	cx1 := int(math.Ceil(float64((x + r) / f.cellSize)))
	cy1 := int(math.Ceil(float64((y + r) / f.cellSize)))

	for cy := cy0; cy <= cy1; cy++ {
		if cy < 0 || cy >= f.H {
			continue
		}
		for cx := cx0; cx <= cx1; cx++ {
			if cx < 0 || cx >= f.W {
				continue
			}
			d := distance(float32(cx)*f.cellSize, float32(cy)*f.cellSize, x, y)
			if d > r {
				continue
			}
			i := cy*f.W + cx
			v := f.alarm[i] + intensity*(1-d/r)
			if v > f.alarmCap {
				v = f.alarmCap
			}
			f.alarm[i] = v
		}
	}
}

// Sample returns the bilinearly interpolated level at (x, y).
// Out-of-range coordinates contribute 0.
func (f *ChemicalField) Sample(x, y float32, typ TrailType, colony int) float32 {
	grid := f.channel(typ, colony)
	if grid == nil {
		return 0
	}

	fx := x / f.cellSize
	fy := y / f.cellSize
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	v00 := f.cellValue(grid, x0, y0)
	v10 := f.cellValue(grid, x0+1, y0)
	v01 := f.cellValue(grid, x0, y0+1)
	v11 := f.cellValue(grid, x0+1, y0+1)

	a := v00 + (v10-v00)*tx
	b := v01 + (v11-v01)*tx
	return a + (b-a)*ty
}

// Gradient returns the blended centered-difference gradient at (x, y).
// The vector is deliberately not normalized: magnitude carries
// trail-strength confidence, and callers weight their steering by it.
func (f *ChemicalField) Gradient(x, y float32, typ TrailType, colony int) (float32, float32) {
	grid := f.channel(typ, colony)
	if grid == nil {
		return 0, 0
	}

	fx := x / f.cellSize
	fy := y / f.cellSize
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	g00x, g00y := f.cellGradient(grid, x0, y0)
	g10x, g10y := f.cellGradient(grid, x0+1, y0)
	g01x, g01y := f.cellGradient(grid, x0, y0+1)
	g11x, g11y := f.cellGradient(grid, x0+1, y0+1)

	ax := g00x + (g10x-g00x)*tx
	bx := g01x + (g11x-g01x)*tx
	ay := g00y + (g10y-g00y)*tx
	by := g01y + (g11y-g01y)*tx

	return ax + (bx-ax)*ty, ay + (by-ay)*ty
}

// cellValue reads one cell, with out-of-range cells reading as 0.
func (f *ChemicalField) cellValue(grid []float32, cx, cy int) float32 {
	if cx < 0 || cy < 0 || cx >= f.W || cy >= f.H {
		return 0
	}
	return grid[cy*f.W+cx]
}

// cellGradient computes the centered finite difference at one cell.
func (f *ChemicalField) cellGradient(grid []float32, cx, cy int) (float32, float32) {
	gx := (f.cellValue(grid, cx+1, cy) - f.cellValue(grid, cx-1, cy)) / (2 * f.cellSize)
	gy := (f.cellValue(grid, cx, cy+1) - f.cellValue(grid, cx, cy-1)) / (2 * f.cellSize)
	return gx, gy
}

// MarkSourceDepleted accelerates decay for all food-trail cells tagged
// with the given source. Tags clear once the cells decay below threshold.
func (f *ChemicalField) MarkSourceDepleted(sourceID int32) {
	f.depleted[sourceID] = struct{}{}
}

// Update accumulates simulated frames and runs at most one decay and
// diffusion pass per configured interval, so the field cadence scales
// with the time-acceleration multiplier instead of the render rate.
// Returns true when a pass ran.
func (f *ChemicalField) Update(simSpeed float32) bool {
	f.frameAccum += simSpeed
	if f.frameAccum < f.updateInterval {
		return false
	}
	f.frameAccum -= f.updateInterval

	for c := 0; c < f.numColonies; c++ {
		f.decay(f.food[c], f.foodDecay, true)
		f.diffuse(f.food[c], f.foodDiffuse, false)
		f.decay(f.home[c], f.homeDecay, false)
		f.diffuse(f.home[c], f.homeDiffuse, false)
	}
	f.decayAlarm()
	f.diffuse(f.alarm, f.alarmDiffuse, true)

	f.clearStaleTags()
	return true
}

// decay applies exponential decay in place. Food-trail cells tagged with
// a depleted source decay at depletedFactor times the base rate.
func (f *ChemicalField) decay(grid []float32, rate float32, foodTags bool) {
	for i, v := range grid {
		if v == 0 {
			continue
		}
		r := rate
		if foodTags {
			if tag := f.sourceTag[i]; tag != NoSource {
				if _, gone := f.depleted[tag]; gone {
					r = rate * f.depletedFactor
					if r > 1 {
						r = 1
					}
				}
			}
		}
		v *= 1 - r
		if v < f.minThreshold {
			v = 0
		}
		grid[i] = v
	}
}

// decayAlarm decays the alarm channel with a rate that scales with local
// concentration: strong alarms fade faster, preventing runaway buildup.
func (f *ChemicalField) decayAlarm() {
	for i, v := range f.alarm {
		if v == 0 {
			continue
		}
		r := f.alarmDecay * (1 + v/f.maxLevel)
		if r > 1 {
			r = 1
		}
		v *= 1 - r
		if v < f.minThreshold {
			v = 0
		}
		f.alarm[i] = v
	}
}

// diffuse applies 4-neighbor diffusion, snapshot-then-apply: every cell
// reads pre-pass values from the scratch copy so the result does not
// depend on sweep order. Edge cells average over their in-bounds
// neighbors. When scaled is true the strength also grows with local
// concentration (alarm spreads faster when strong).
func (f *ChemicalField) diffuse(grid []float32, strength float32, scaled bool) {
	if strength <= 0 {
		return
	}
	copy(f.tmp, grid)
	src := f.tmp

	for cy := 0; cy < f.H; cy++ {
		for cx := 0; cx < f.W; cx++ {
			i := cy*f.W + cx
			c := src[i]

			var sum float32
			n := 0
			if cx > 0 {
				sum += src[i-1]
				n++
			}
			if cx < f.W-1 {
				sum += src[i+1]
				n++
			}
			if cy > 0 {
				sum += src[i-f.W]
				n++
			}
			if cy < f.H-1 {
				sum += src[i+f.W]
				n++
			}
			if n == 0 {
				continue
			}
			mean := sum / float32(n)
			if c == 0 && mean == 0 {
				continue
			}

			d := strength
			if scaled {
				d *= 1 + c/f.maxLevel
			}
			// Stability clamp for explicit diffusion
			if d > 0.25 {
				d = 0.25
			}

			v := (1-d)*c + d*mean
			if v < f.minThreshold {
				v = 0
			} else if v > f.maxLevel {
				v = f.maxLevel
			}
			grid[i] = v
		}
	}
}

// clearStaleTags drops source tags on cells whose food trail has fully
// decayed across every colony channel.
func (f *ChemicalField) clearStaleTags() {
	if len(f.depleted) == 0 {
		return
	}
	for i, tag := range f.sourceTag {
		if tag == NoSource {
			continue
		}
		if _, gone := f.depleted[tag]; !gone {
			continue
		}
		live := false
		for c := 0; c < f.numColonies; c++ {
			if f.food[c][i] > 0 {
				live = true
				break
			}
		}
		if !live {
			f.sourceTag[i] = NoSource
		}
	}
}

// Total sums one channel, for telemetry and logging.
func (f *ChemicalField) Total(typ TrailType, colony int) float64 {
	grid := f.channel(typ, colony)
	if grid == nil {
		return 0
	}
	var sum float64
	for _, v := range grid {
		sum += float64(v)
	}
	return sum
}

// GridSize returns the grid dimensions.
func (f *ChemicalField) GridSize() (int, int) {
	return f.W, f.H
}
