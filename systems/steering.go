package systems

import (
	"formic/components"
)

// applySteering turns the ant toward the desired direction at a limited
// rate and accelerates toward the target speed, with a speed floor so a
// sharp turn never stalls the ant. The target angle is smoothed against
// the current heading before the turn limit is applied.
func (e *BehaviorEngine) applySteering(vel *components.Velocity, ant *components.Ant, dirX, dirY, speedFrac, dt float32) {
	if dirX == 0 && dirY == 0 {
		return
	}

	target := atan2_32(dirY, dirX)
	delta := normalizeAngle(target - ant.Heading)
	delta *= 1 - e.headingSmooth

	maxDelta := e.maxTurnRate * dt
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	ant.Heading = normalizeAngle(ant.Heading + delta)

	targetSpeed := ant.MaxSpeed * speedFrac
	speed := magnitude(vel.X, vel.Y)
	maxDS := e.maxAccel * dt
	ds := targetSpeed - speed
	if ds > maxDS {
		ds = maxDS
	} else if ds < -maxDS {
		ds = -maxDS
	}
	speed += ds

	floor := ant.MaxSpeed * e.speedFloor
	if targetSpeed >= floor && speed < floor {
		speed = floor
	}

	vel.X = cos32(ant.Heading) * speed
	vel.Y = sin32(ant.Heading) * speed
}

// avoidObstacles accumulates a repulsion vector from obstacles within
// radius, each weighted by proximity and the given strength.
func (e *BehaviorEngine) avoidObstacles(pos *components.Position, scr *AgentScratch, radius, strength float32) (float32, float32) {
	if radius <= 0 || strength <= 0 {
		return 0, 0
	}

	scr.obstacleBuf = e.obstacles.QueryNear(scr.obstacleBuf[:0], pos.X, pos.Y, radius+e.agentRadius)
	if len(scr.obstacleBuf) == 0 {
		return 0, 0
	}

	list := e.obstacles.Obstacles()
	var ax, ay float32
	for _, i := range scr.obstacleBuf {
		o := &list[i]

		// Vector from the nearest surface point, not the center, so
		// large obstacles repulse as strongly as small ones.
		sx, sy := o.X, o.Y
		if o.Kind == ObstacleBox {
			sx = clamp32(pos.X, o.X-o.HalfW, o.X+o.HalfW)
			sy = clamp32(pos.Y, o.Y-o.HalfH, o.Y+o.HalfH)
		}
		dx := pos.X - sx
		dy := pos.Y - sy
		d := magnitude(dx, dy)
		if o.Kind == ObstacleCircle {
			d -= o.Radius
		}
		if d >= radius {
			continue
		}
		if d < 1e-3 {
			d = 1e-3
		}
		w := (1 - d/radius) * strength
		nx, ny := normalize(dx, dy)
		ax += nx * w
		ay += ny * w
	}
	return ax, ay
}
