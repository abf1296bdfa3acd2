package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// RunDB wraps a SQLite connection that accumulates window stats across runs.
// Each simulation run gets a UUID and appends its windows to a shared file,
// so parameter sweeps can be compared after the fact.
type RunDB struct {
	conn  *sqlx.DB
	runID string
}

// OpenRunDB opens or creates the run database at the given path and
// registers a new run. Returns nil if path is empty (persistence disabled).
func OpenRunDB(path string, seed int64) (*RunDB, error) {
	if path == "" {
		return nil, nil
	}

	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &RunDB{conn: conn, runID: uuid.NewString()}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	_, err = conn.Exec(
		"INSERT INTO runs (id, started_at, seed) VALUES (?, ?, ?)",
		db.runID, time.Now().UTC().Format(time.RFC3339), seed,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("insert run: %w", err)
	}

	slog.Info("run registered", "run_id", db.runID, "seed", seed)
	return db, nil
}

// RunID returns the UUID assigned to this run.
func (db *RunDB) RunID() string {
	if db == nil {
		return ""
	}
	return db.runID
}

// Close closes the database connection.
func (db *RunDB) Close() error {
	if db == nil {
		return nil
	}
	return db.conn.Close()
}

func (db *RunDB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		seed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS windows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		window_end INTEGER NOT NULL,
		sim_time REAL NOT NULL,
		ants INTEGER NOT NULL,
		foragers INTEGER NOT NULL,
		scouts INTEGER NOT NULL,
		"returning" INTEGER NOT NULL,
		carrying INTEGER NOT NULL,
		pickups INTEGER NOT NULL,
		deliveries INTEGER NOT NULL,
		food_delivered REAL NOT NULL,
		births INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		stuck_recoveries INTEGER NOT NULL,
		trail_locks INTEGER NOT NULL,
		energy_mean REAL NOT NULL,
		energy_p10 REAL NOT NULL,
		energy_p50 REAL NOT NULL,
		energy_p90 REAL NOT NULL,
		food_sources INTEGER NOT NULL,
		food_remaining REAL NOT NULL,
		colony_stock REAL NOT NULL,
		total_delivered REAL NOT NULL,
		food_trail REAL NOT NULL,
		home_trail REAL NOT NULL,
		alarm_trail REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_windows_run ON windows(run_id);
	CREATE INDEX IF NOT EXISTS idx_windows_end ON windows(window_end);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// InsertWindow appends a window stats record for this run.
func (db *RunDB) InsertWindow(stats WindowStats) error {
	if db == nil {
		return nil
	}

	_, err := db.conn.Exec(`INSERT INTO windows
		(run_id, window_end, sim_time, ants, foragers, scouts, "returning", carrying,
		 pickups, deliveries, food_delivered, births, deaths, stuck_recoveries, trail_locks,
		 energy_mean, energy_p10, energy_p50, energy_p90,
		 food_sources, food_remaining, colony_stock, total_delivered,
		 food_trail, home_trail, alarm_trail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		db.runID, stats.WindowEndTick, stats.SimTimeSec,
		stats.Ants, stats.Foragers, stats.Scouts, stats.Returning, stats.Carrying,
		stats.Pickups, stats.Deliveries, stats.FoodDelivered,
		stats.Births, stats.Deaths, stats.StuckRecoveries, stats.TrailLocks,
		stats.EnergyMean, stats.EnergyP10, stats.EnergyP50, stats.EnergyP90,
		stats.FoodSources, stats.FoodRemaining, stats.ColonyStock, stats.TotalDelivered,
		stats.FoodTrail, stats.HomeTrail, stats.AlarmTrail,
	)
	if err != nil {
		return fmt.Errorf("insert window: %w", err)
	}
	return nil
}

// RunSummary holds per-run aggregates pulled back out of the database.
type RunSummary struct {
	RunID          string  `db:"run_id"`
	Windows        int     `db:"windows"`
	TotalDelivered float64 `db:"total_delivered"`
	FinalAnts      int     `db:"final_ants"`
}

// SummarizeRuns returns aggregates for the most recent runs.
func (db *RunDB) SummarizeRuns(limit int) ([]RunSummary, error) {
	if db == nil {
		return nil, nil
	}

	var summaries []RunSummary
	err := db.conn.Select(&summaries, `
		SELECT w.run_id AS run_id,
		       COUNT(*) AS windows,
		       MAX(w.total_delivered) AS total_delivered,
		       (SELECT ants FROM windows w2
		        WHERE w2.run_id = w.run_id
		        ORDER BY w2.window_end DESC LIMIT 1) AS final_ants
		FROM windows w
		JOIN runs r ON r.id = w.run_id
		GROUP BY w.run_id
		ORDER BY r.started_at DESC
		LIMIT ?`,
		limit,
	)
	return summaries, err
}
