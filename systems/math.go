package systems

import "math"

// clamp32 clamps x to [min, max].
func clamp32(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

// clamp01 clamps x to [0, 1].
func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float32) float32 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// blendAngle moves from a toward b by fraction t along the shortest arc.
func blendAngle(a, b, t float32) float32 {
	return a + normalizeAngle(b-a)*t
}

func distance(x1, y1, x2, y2 float32) float32 {
	dx := x2 - x1
	dy := y2 - y1
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

func distanceSq(x1, y1, x2, y2 float32) float32 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

// normalize returns the unit vector of (x, y), or (0, 0) for a near-zero vector.
func normalize(x, y float32) (float32, float32) {
	mag := float32(math.Sqrt(float64(x*x + y*y)))
	if mag < 1e-6 {
		return 0, 0
	}
	return x / mag, y / mag
}

func magnitude(x, y float32) float32 {
	return float32(math.Sqrt(float64(x*x + y*y)))
}

func cos32(a float32) float32 { return float32(math.Cos(float64(a))) }
func sin32(a float32) float32 { return float32(math.Sin(float64(a))) }

func atan2_32(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}
