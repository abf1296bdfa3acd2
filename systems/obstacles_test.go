package systems

import "testing"

// TestObstacleCheckCollision verifies point-vs-obstacle queries for both
// shapes.
func TestObstacleCheckCollision(t *testing.T) {
	m := testObstacles([]Obstacle{
		{Kind: ObstacleCircle, X: 100, Y: 100, Radius: 10},
		{Kind: ObstacleBox, X: 300, Y: 300, HalfW: 20, HalfH: 10},
	})

	if m.CheckCollision(100, 100, 0) == nil {
		t.Error("point inside circle not detected")
	}
	if m.CheckCollision(112, 100, 3) == nil {
		t.Error("circle overlap via query radius not detected")
	}
	if m.CheckCollision(115, 100, 3) != nil {
		t.Error("false positive outside circle")
	}

	if m.CheckCollision(315, 305, 0) == nil {
		t.Error("point inside box not detected")
	}
	if m.CheckCollision(322, 300, 3) == nil {
		t.Error("box overlap via query radius not detected")
	}
	if m.CheckCollision(330, 330, 3) != nil {
		t.Error("false positive outside box")
	}
}

// TestObstacleQueryNear verifies the cell index returns nearby obstacles
// once each and skips distant ones.
func TestObstacleQueryNear(t *testing.T) {
	m := testObstacles([]Obstacle{
		{Kind: ObstacleCircle, X: 100, Y: 100, Radius: 10},
		{Kind: ObstacleCircle, X: 130, Y: 100, Radius: 10},
		{Kind: ObstacleCircle, X: 900, Y: 900, Radius: 10},
	})

	got := m.QueryNear(nil, 110, 100, 40)
	if len(got) != 2 {
		t.Fatalf("QueryNear returned %d obstacles, want 2", len(got))
	}
	for i, a := range got {
		for _, b := range got[i+1:] {
			if a == b {
				t.Errorf("duplicate obstacle index %d", a)
			}
		}
	}

	// Buffer reuse keeps the same backing array.
	buf := make([]int, 0, 8)
	got = m.QueryNear(buf, 110, 100, 40)
	if len(got) != 2 {
		t.Errorf("reused buffer query returned %d obstacles, want 2", len(got))
	}
}
