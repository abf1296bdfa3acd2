package systems

import (
	"math"

	"formic/components"
)

// updateStuck accumulates stuck time and fires unstuck recovery once
// the counter crosses the threshold. realMove is the tick's position
// delta minus physics push-out; colonyDistBefore is the distance to the
// colony at the start of the tick so Returning ants can be checked for
// navigational (not just physical) stalls.
func (e *BehaviorEngine) updateStuck(pos *components.Position, vel *components.Velocity, ant *components.Ant, realMove, colonyDistBefore, dt float32, scr *AgentScratch) {
	if ant.RecoveryCooldown > 0 {
		return
	}

	expected := e.stuckExpectedFactor * ant.MaxSpeed * dt

	stuckNow := realMove < expected
	goodProgress := realMove >= 2*expected

	if ant.State == components.StateReturning {
		c := e.colony(ant)
		progress := colonyDistBefore - distance(pos.X, pos.Y, c.X, c.Y)
		if progress < e.stuckProgressEps*expected {
			// Moving but circling: still counts as stuck.
			stuckNow = true
			goodProgress = false
		}
	}

	if stuckNow {
		ant.StuckCounter += dt
	} else if goodProgress && ant.StuckCounter > 0 {
		// Decay only on clearly-good movement so the counter does not
		// oscillate around the threshold.
		ant.StuckCounter -= e.stuckDecay * dt
		if ant.StuckCounter < 0 {
			ant.StuckCounter = 0
		}
	}

	if ant.StuckCounter >= e.stuckThreshold {
		e.recover(vel, ant, scr)
	}
}

// recover steers the ant backward with angular jitter at reduced speed,
// suspends stuck detection and trail following, and abandons any
// current commitment. Scouts draw a fresh walk step on their next tick.
func (e *BehaviorEngine) recover(vel *components.Velocity, ant *components.Ant, scr *AgentScratch) {
	jitter := (scr.Rng.Float32()*2 - 1) * e.recoveryJitter
	ant.Heading = normalizeAngle(ant.Heading + math.Pi + jitter)

	speed := ant.MaxSpeed * e.recoverySpeed
	vel.X = cos32(ant.Heading) * speed
	vel.Y = sin32(ant.Heading) * speed

	ant.StuckCounter = 0
	ant.RecoveryCooldown = e.recoveryCooldown
	ant.IgnoreTrailCooldown = e.ignoreTrailTime
	ant.ResetTrailState()

	e.observer.StuckRecovery(ant)
}
