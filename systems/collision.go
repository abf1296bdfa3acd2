package systems

import (
	"math"

	"formic/config"
)

// MoveResult is the outcome of one resolved movement.
type MoveResult struct {
	X, Y       float32 // Final position
	VelX, VelY float32 // Velocity after any slide response

	// DepenetrationDist is the total push-out distance applied to escape
	// pre-existing overlaps. It is not genuine locomotion and is excluded
	// from stuck detection.
	DepenetrationDist float32

	Hit bool // True when any sweep found a contact
}

// CollisionResolver performs swept-circle collision with sliding against
// static obstacles. Stateless apart from configuration, so one resolver
// is shared by all agents.
type CollisionResolver struct {
	skinWidth     float32
	maxStepDist   float32
	maxIterations int
}

// NewCollisionResolver creates a resolver from configuration.
func NewCollisionResolver(cfg *config.CollisionConfig) *CollisionResolver {
	iters := cfg.MaxIterations
	if iters < 1 {
		iters = 4
	}
	return &CollisionResolver{
		skinWidth:     float32(cfg.SkinWidth),
		maxStepDist:   float32(cfg.MaxStepDist),
		maxIterations: iters,
	}
}

// sweepEpsilon backs the agent off the exact contact time so the next
// iteration does not start inside the obstacle.
const sweepEpsilon = 1e-3

// Resolve moves a circle of the given radius by vel*dt against the
// obstacle set, sliding along contacts instead of stopping. The frame
// displacement is sub-stepped when it exceeds the configured maximum so
// agents cannot tunnel at high speed or time acceleration. scratch is an
// optional reusable index buffer for obstacle queries.
func (r *CollisionResolver) Resolve(x, y, velX, velY, radius, dt float32, obs ObstacleIndex, scratch []int) (MoveResult, []int) {
	res := MoveResult{X: x, Y: y, VelX: velX, VelY: velY}

	dispX := velX * dt
	dispY := velY * dt
	total := magnitude(dispX, dispY)

	steps := 1
	if r.maxStepDist > 0 && total > r.maxStepDist {
		steps = int(math.Ceil(float64(total / r.maxStepDist)))
	}
	inv := 1 / float32(steps)

	for s := 0; s < steps; s++ {
		// Step displacement comes from the current (possibly slid) velocity.
		stepX := res.VelX * dt * inv
		stepY := res.VelY * dt * inv

		queryRadius := radius + magnitude(stepX, stepY) + r.skinWidth + 1
		scratch = obs.QueryNear(scratch[:0], res.X, res.Y, queryRadius)

		res.X, res.Y, res.DepenetrationDist = r.depenetrate(res.X, res.Y, radius, obs, scratch, res.DepenetrationDist)

		r.sweep(&res, stepX, stepY, radius, obs, scratch)
	}

	return res, scratch
}

// depenetrate pushes the circle out of any obstacle it already overlaps,
// along the separating normal, by overlap plus skin width.
func (r *CollisionResolver) depenetrate(x, y, radius float32, obs ObstacleIndex, near []int, accum float32) (float32, float32, float32) {
	list := obs.Obstacles()
	for _, i := range near {
		o := &list[i]
		nx, ny, overlap := penetration(o, x, y, radius)
		if overlap <= 0 {
			continue
		}
		push := overlap + r.skinWidth
		x += nx * push
		y += ny * push
		accum += push
	}
	return x, y, accum
}

// sweep advances the position along the step displacement, resolving the
// globally earliest contact and sliding, up to the iteration cap.
func (r *CollisionResolver) sweep(res *MoveResult, dispX, dispY, radius float32, obs ObstacleIndex, near []int) {
	list := obs.Obstacles()

	for iter := 0; iter < r.maxIterations; iter++ {
		if dispX == 0 && dispY == 0 {
			return
		}

		bestT := float32(2)
		var bestNX, bestNY float32
		for _, i := range near {
			o := &list[i]
			t, nx, ny, hit := sweepObstacle(o, res.X, res.Y, dispX, dispY, radius)
			if hit && t < bestT {
				bestT = t
				bestNX = nx
				bestNY = ny
			}
		}

		if bestT > 1 {
			// No contact: apply the full remaining displacement.
			res.X += dispX
			res.Y += dispY
			return
		}

		res.Hit = true

		// Advance to just before impact, then push out along the normal.
		t := bestT - sweepEpsilon
		if t < 0 {
			t = 0
		}
		res.X += dispX * t
		res.Y += dispY * t
		res.X += bestNX * r.skinWidth
		res.Y += bestNY * r.skinWidth

		// Slide: remove the normal component, keep the tangential one.
		remX := dispX * (1 - t)
		remY := dispY * (1 - t)
		dn := remX*bestNX + remY*bestNY
		dispX = remX - dn*bestNX
		dispY = remY - dn*bestNY

		vn := res.VelX*bestNX + res.VelY*bestNY
		if vn < 0 {
			res.VelX -= vn * bestNX
			res.VelY -= vn * bestNY
		}
	}
}

// penetration returns the outward normal and overlap depth for a circle
// already intersecting the obstacle. Overlap <= 0 means no intersection.
func penetration(o *Obstacle, x, y, radius float32) (nx, ny, overlap float32) {
	if o.Kind == ObstacleBox {
		cx := clamp32(x, o.X-o.HalfW, o.X+o.HalfW)
		cy := clamp32(y, o.Y-o.HalfH, o.Y+o.HalfH)
		dx := x - cx
		dy := y - cy
		d := magnitude(dx, dy)
		if d > 1e-6 {
			return dx / d, dy / d, radius - d
		}
		// Center inside the box: push out along the shallowest face.
		left := x - (o.X - o.HalfW)
		right := (o.X + o.HalfW) - x
		top := y - (o.Y - o.HalfH)
		bottom := (o.Y + o.HalfH) - y
		min := left
		nx, ny = -1, 0
		if right < min {
			min = right
			nx, ny = 1, 0
		}
		if top < min {
			min = top
			nx, ny = 0, -1
		}
		if bottom < min {
			min = bottom
			nx, ny = 0, 1
		}
		return nx, ny, min + radius
	}

	dx := x - o.X
	dy := y - o.Y
	d := magnitude(dx, dy)
	sum := radius + o.Radius
	if d >= sum {
		return 0, 0, 0
	}
	if d < 1e-6 {
		// Concentric: pick an arbitrary fixed normal.
		return 1, 0, sum
	}
	return dx / d, dy / d, sum - d
}

// sweepObstacle finds the earliest time of impact t in [0, 1] for a
// circle moving by (dx, dy) against the obstacle. Degenerate cases
// (near-zero motion, no real root, receding contact) report no hit.
func sweepObstacle(o *Obstacle, x, y, dx, dy, radius float32) (t, nx, ny float32, hit bool) {
	if o.Kind == ObstacleBox {
		return sweepBox(o, x, y, dx, dy, radius)
	}
	return sweepCircle(o, x, y, dx, dy, radius)
}

// sweepCircle solves ||p + t*d||^2 = R^2 for the earliest t in [0, 1].
func sweepCircle(o *Obstacle, x, y, dx, dy, radius float32) (float32, float32, float32, bool) {
	px := x - o.X
	py := y - o.Y
	rr := radius + o.Radius

	a := dx*dx + dy*dy
	if a < 1e-12 {
		return 0, 0, 0, false
	}
	b := 2 * (px*dx + py*dy)
	c := px*px + py*py - rr*rr
	if c < 0 {
		// Already overlapping: the depenetration pass owns this case.
		return 0, 0, 0, false
	}
	if b >= 0 {
		// Moving away or tangent.
		return 0, 0, 0, false
	}

	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, 0, 0, false
	}
	t := (-b - float32(math.Sqrt(float64(disc)))) / (2 * a)
	if t < 0 || t > 1 {
		return 0, 0, 0, false
	}

	hx := px + t*dx
	hy := py + t*dy
	nx, ny := normalize(hx, hy)
	return t, nx, ny, true
}

// sweepBox sweeps the circle against the box expanded by the circle's
// radius, using a slab test. Corner rounding is approximated by the
// expanded box, which overestimates contacts by at most the skin scale.
func sweepBox(o *Obstacle, x, y, dx, dy, radius float32) (float32, float32, float32, bool) {
	minX := o.X - o.HalfW - radius
	maxX := o.X + o.HalfW + radius
	minY := o.Y - o.HalfH - radius
	maxY := o.Y + o.HalfH + radius

	tEnter := float32(0)
	tExit := float32(1)
	var nx, ny float32

	// X slab
	if dx == 0 {
		if x < minX || x > maxX {
			return 0, 0, 0, false
		}
	} else {
		t1 := (minX - x) / dx
		t2 := (maxX - x) / dx
		axisN := float32(-1)
		if t1 > t2 {
			t1, t2 = t2, t1
			axisN = 1
		}
		if t1 > tEnter {
			tEnter = t1
			nx, ny = axisN, 0
		}
		if t2 < tExit {
			tExit = t2
		}
	}

	// Y slab
	if dy == 0 {
		if y < minY || y > maxY {
			return 0, 0, 0, false
		}
	} else {
		t1 := (minY - y) / dy
		t2 := (maxY - y) / dy
		axisN := float32(-1)
		if t1 > t2 {
			t1, t2 = t2, t1
			axisN = 1
		}
		if t1 > tEnter {
			tEnter = t1
			nx, ny = 0, axisN
		}
		if t2 < tExit {
			tExit = t2
		}
	}

	if tEnter > tExit || tEnter <= 0 || tEnter > 1 {
		return 0, 0, 0, false
	}
	if nx == 0 && ny == 0 {
		return 0, 0, 0, false
	}
	return tEnter, nx, ny, true
}
