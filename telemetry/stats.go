package telemetry

import (
	"log/slog"
	"sort"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	Ants      int `csv:"ants"`
	Foragers  int `csv:"foragers"`
	Scouts    int `csv:"scouts"`
	Returning int `csv:"returning"`
	Carrying  int `csv:"carrying"`

	// Events during window
	Pickups         int     `csv:"pickups"`
	PickupAmount    float64 `csv:"pickup_amount"`
	Deliveries      int     `csv:"deliveries"`
	FoodDelivered   float64 `csv:"food_delivered"`
	Births          int     `csv:"births"`
	Deaths          int     `csv:"deaths"`
	StuckRecoveries int     `csv:"stuck_recoveries"`
	TrailLocks      int     `csv:"trail_locks"`

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Food economy
	FoodSources    int     `csv:"food_sources"`
	FoodRemaining  float64 `csv:"food_remaining"`
	ColonyStock    float64 `csv:"colony_stock"`
	TotalDelivered float64 `csv:"total_delivered"`

	// Pheromone field totals
	FoodTrail  float64 `csv:"food_trail"`
	HomeTrail  float64 `csv:"home_trail"`
	AlarmTrail float64 `csv:"alarm_trail"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeEnergyStats calculates mean and percentiles from energy values.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("ants", s.Ants),
		slog.Int("foragers", s.Foragers),
		slog.Int("scouts", s.Scouts),
		slog.Int("returning", s.Returning),
		slog.Int("carrying", s.Carrying),
		slog.Int("pickups", s.Pickups),
		slog.Float64("pickup_amount", s.PickupAmount),
		slog.Int("deliveries", s.Deliveries),
		slog.Float64("food_delivered", s.FoodDelivered),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("stuck_recoveries", s.StuckRecoveries),
		slog.Int("trail_locks", s.TrailLocks),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Int("food_sources", s.FoodSources),
		slog.Float64("food_remaining", s.FoodRemaining),
		slog.Float64("colony_stock", s.ColonyStock),
		slog.Float64("total_delivered", s.TotalDelivered),
		slog.Float64("food_trail", s.FoodTrail),
		slog.Float64("home_trail", s.HomeTrail),
		slog.Float64("alarm_trail", s.AlarmTrail),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"ants", s.Ants,
		"foragers", s.Foragers,
		"scouts", s.Scouts,
		"returning", s.Returning,
		"carrying", s.Carrying,
		"pickups", s.Pickups,
		"deliveries", s.Deliveries,
		"food_delivered", s.FoodDelivered,
		"births", s.Births,
		"deaths", s.Deaths,
		"stuck_recoveries", s.StuckRecoveries,
		"trail_locks", s.TrailLocks,
		"energy_mean", s.EnergyMean,
		"food_remaining", s.FoodRemaining,
		"colony_stock", s.ColonyStock,
	)
}
