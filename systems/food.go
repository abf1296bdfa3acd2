package systems

// FoodSource is a harvestable food deposit in the world.
type FoodSource struct {
	ID     int32
	X, Y   float32
	Amount float32
}

// FoodView is the read-only food lookup used during agent sensing. Safe
// for concurrent readers as long as no source is mutated concurrently.
type FoodView interface {
	// Near returns the nearest source with remaining food within radius
	// of (x, y), or nil.
	Near(x, y, radius float32) *FoodSource
}

// FoodManager owns the food sources. Sources are appended at worldgen
// time and removed when emptied. Source counts stay small, so lookups
// are linear scans.
type FoodManager struct {
	sources []FoodSource
	nextID  int32
}

func NewFoodManager() *FoodManager {
	return &FoodManager{}
}

// Add registers a new source and returns its id.
func (m *FoodManager) Add(x, y, amount float32) int32 {
	id := m.nextID
	m.nextID++
	m.sources = append(m.sources, FoodSource{ID: id, X: x, Y: y, Amount: amount})
	return id
}

// Sources returns the live source slice. Callers must not retain it
// across RemoveDepleted.
func (m *FoodManager) Sources() []FoodSource {
	return m.sources
}

func (m *FoodManager) Count() int {
	return len(m.sources)
}

// Get returns the source with the given id, or nil.
func (m *FoodManager) Get(id int32) *FoodSource {
	for i := range m.sources {
		if m.sources[i].ID == id {
			return &m.sources[i]
		}
	}
	return nil
}

// Near returns the nearest non-empty source within radius, or nil.
func (m *FoodManager) Near(x, y, radius float32) *FoodSource {
	var best *FoodSource
	bestSq := radius * radius
	for i := range m.sources {
		s := &m.sources[i]
		if s.Amount <= 0 {
			continue
		}
		d := distanceSq(x, y, s.X, s.Y)
		if d <= bestSq {
			bestSq = d
			best = s
		}
	}
	return best
}

// Consume removes up to amount from the source and returns how much was
// actually taken. Unknown or empty sources yield 0.
func (m *FoodManager) Consume(id int32, amount float32) float32 {
	s := m.Get(id)
	if s == nil || s.Amount <= 0 {
		return 0
	}
	taken := amount
	if taken > s.Amount {
		taken = s.Amount
	}
	s.Amount -= taken
	return taken
}

// TotalRemaining sums food across all sources.
func (m *FoodManager) TotalRemaining() float64 {
	var total float64
	for i := range m.sources {
		total += float64(m.sources[i].Amount)
	}
	return total
}

// RemoveDepleted drops emptied sources, flags their trails in the field
// for accelerated decay, and returns how many were removed.
func (m *FoodManager) RemoveDepleted(field *ChemicalField) int {
	removed := 0
	out := m.sources[:0]
	for i := range m.sources {
		s := m.sources[i]
		if s.Amount <= 0 {
			if field != nil {
				field.MarkSourceDepleted(s.ID)
			}
			removed++
			continue
		}
		out = append(out, s)
	}
	m.sources = out
	return removed
}
