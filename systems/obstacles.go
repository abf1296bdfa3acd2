package systems

// ObstacleKind selects the obstacle shape.
type ObstacleKind uint8

const (
	ObstacleCircle ObstacleKind = iota
	ObstacleBox // axis-aligned, kept from an earlier world format
)

// Obstacle is a static solid body. Immutable after creation.
type Obstacle struct {
	Kind ObstacleKind
	X, Y float32 // Center

	Radius float32 // Circle

	HalfW, HalfH float32 // Box half-extents
}

// Contains reports whether a circle at (x, y) with the given radius
// overlaps the obstacle.
func (o *Obstacle) Contains(x, y, radius float32) bool {
	if o.Kind == ObstacleBox {
		cx := clamp32(x, o.X-o.HalfW, o.X+o.HalfW)
		cy := clamp32(y, o.Y-o.HalfH, o.Y+o.HalfH)
		return distanceSq(x, y, cx, cy) <= radius*radius
	}
	r := o.Radius + radius
	return distanceSq(x, y, o.X, o.Y) <= r*r
}

// boundRadius returns a conservative circumscribing radius for grid insertion.
func (o *Obstacle) boundRadius() float32 {
	if o.Kind == ObstacleBox {
		return magnitude(o.HalfW, o.HalfH)
	}
	return o.Radius
}

// ObstacleIndex is the read-only obstacle capability consumed by the
// behavior engine, the collision resolver, and field deposits.
type ObstacleIndex interface {
	// CheckCollision returns an obstacle overlapping the circle at
	// (x, y), or nil when the space is free.
	CheckCollision(x, y, radius float32) *Obstacle
	// QueryNear appends the indices of obstacles whose bounds come
	// within radius of (x, y) to dst and returns the updated slice.
	QueryNear(dst []int, x, y, radius float32) []int
	// Obstacles returns the full obstacle list. Callers must not mutate it.
	Obstacles() []Obstacle
}

// ObstacleManager is a static cell-grid index over the obstacle list.
// Obstacles never move, so the grid is built once at construction.
type ObstacleManager struct {
	obstacles []Obstacle

	cellSize float32
	cols     int
	rows     int
	cells    [][]int // obstacle indices per grid cell
}

// NewObstacleManager indexes the given obstacles over a world of the
// given size. cellSize should be on the order of the largest obstacle.
func NewObstacleManager(obstacles []Obstacle, width, height, cellSize float32) *ObstacleManager {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	m := &ObstacleManager{
		obstacles: obstacles,
		cellSize:  cellSize,
		cols:      cols,
		rows:      rows,
		cells:     make([][]int, cols*rows),
	}

	for i := range obstacles {
		o := &obstacles[i]
		r := o.boundRadius()
		c0, r0 := m.cellCoords(o.X-r, o.Y-r)
		c1, r1 := m.cellCoords(o.X+r, o.Y+r)
		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				idx := row*cols + col
				m.cells[idx] = append(m.cells[idx], i)
			}
		}
	}

	return m
}

// cellCoords returns clamped grid coordinates for a world position.
func (m *ObstacleManager) cellCoords(x, y float32) (int, int) {
	col := int(x / m.cellSize)
	row := int(y / m.cellSize)
	if col < 0 {
		col = 0
	} else if col >= m.cols {
		col = m.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= m.rows {
		row = m.rows - 1
	}
	return col, row
}

// CheckCollision returns the first obstacle overlapping the circle at
// (x, y), or nil.
func (m *ObstacleManager) CheckCollision(x, y, radius float32) *Obstacle {
	c0, r0 := m.cellCoords(x-radius, y-radius)
	c1, r1 := m.cellCoords(x+radius, y+radius)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, i := range m.cells[row*m.cols+col] {
				if m.obstacles[i].Contains(x, y, radius) {
					return &m.obstacles[i]
				}
			}
		}
	}
	return nil
}

// QueryNear appends indices of obstacles within radius of (x, y) to dst.
// Reuse dst across calls to avoid allocations.
func (m *ObstacleManager) QueryNear(dst []int, x, y, radius float32) []int {
	c0, r0 := m.cellCoords(x-radius, y-radius)
	c1, r1 := m.cellCoords(x+radius, y+radius)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, i := range m.cells[row*m.cols+col] {
				o := &m.obstacles[i]
				if seen(dst, i) {
					continue
				}
				if distanceSq(x, y, o.X, o.Y) <= (radius+o.boundRadius())*(radius+o.boundRadius()) {
					dst = append(dst, i)
				}
			}
		}
	}
	return dst
}

// Obstacles returns the indexed obstacle list.
func (m *ObstacleManager) Obstacles() []Obstacle {
	return m.obstacles
}

// seen reports whether idx is already in dst. Obstacles span multiple
// grid cells, so queries can visit the same index twice; the list is
// short enough that a linear scan beats a map.
func seen(dst []int, idx int) bool {
	for _, v := range dst {
		if v == idx {
			return true
		}
	}
	return false
}
