package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"formic/config"
	"formic/telemetry"
)

func init() {
	config.MustInit("")
}

func TestNewGameSetup(t *testing.T) {
	g := NewGame(7)
	defer g.Close()

	cfg := config.Cfg()

	colonies := g.Colonies()
	if len(colonies) != len(cfg.Colonies) {
		t.Fatalf("len(colonies) = %d, want %d", len(colonies), len(cfg.Colonies))
	}

	wantPop := cfg.Agents.Initial
	for _, c := range colonies {
		if c.Population != wantPop {
			t.Errorf("colony %d population = %d, want %d", c.ID, c.Population, wantPop)
		}
		if c.FoodStock != float32(cfg.Economy.InitialStock) {
			t.Errorf("colony %d stock = %v, want %v", c.ID, c.FoodStock, cfg.Economy.InitialStock)
		}
	}

	if got := g.AliveCount(); got != wantPop*len(colonies) {
		t.Errorf("AliveCount() = %d, want %d", got, wantPop*len(colonies))
	}
	if g.TotalDelivered() != 0 {
		t.Errorf("TotalDelivered() = %v at start, want 0", g.TotalDelivered())
	}
}

func TestGameRunInvariants(t *testing.T) {
	g := NewGame(7)
	defer g.Close()

	g.SetSpeed(2)

	cfg := config.Cfg()
	lastDelivered := 0.0

	for step := 0; step < 300; step++ {
		g.Step()

		delivered := g.TotalDelivered()
		if delivered < lastDelivered {
			t.Fatalf("step %d: delivered decreased %v -> %v", step, lastDelivered, delivered)
		}
		lastDelivered = delivered
	}

	if g.Tick() != 600 {
		t.Errorf("Tick() = %d after 300 steps at speed 2, want 600", g.Tick())
	}

	alive := g.AliveCount()
	if alive == 0 {
		t.Error("population collapsed during a short run")
	}

	popSum := 0
	for _, c := range g.Colonies() {
		if c.Population < 0 {
			t.Errorf("colony %d population negative: %d", c.ID, c.Population)
		}
		if c.Population > cfg.Agents.MaxPerColony {
			t.Errorf("colony %d population %d exceeds cap %d", c.ID, c.Population, cfg.Agents.MaxPerColony)
		}
		if c.FoodStock < 0 {
			t.Errorf("colony %d stock negative: %v", c.ID, c.FoodStock)
		}
		if c.Deaths < 0 {
			t.Errorf("colony %d deaths negative: %d", c.ID, c.Deaths)
		}
		popSum += c.Population
	}
	if popSum != alive {
		t.Errorf("colony populations sum to %d, AliveCount() = %d", popSum, alive)
	}
}

func TestGameTelemetryOutput(t *testing.T) {
	dir := t.TempDir()

	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager error: %v", err)
	}
	db, err := telemetry.OpenRunDB(filepath.Join(dir, "runs.db"), 7)
	if err != nil {
		t.Fatalf("OpenRunDB error: %v", err)
	}

	g := NewGame(7)
	g.SetOutput(om)
	g.SetRunDB(db)
	g.SetSpeed(4)

	// One stats window plus slack
	windowTicks := int(config.Cfg().Telemetry.StatsWindow / config.Cfg().World.DT)
	for int(g.Tick()) < windowTicks+10 {
		g.Step()
	}
	g.Close()

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		t.Fatalf("telemetry.csv has %d lines, want header plus at least one window", len(lines))
	}

	if _, err := os.Stat(filepath.Join(dir, "perf.csv")); err != nil {
		t.Errorf("perf.csv missing: %v", err)
	}

	db2, err := telemetry.OpenRunDB(filepath.Join(dir, "runs.db"), 8)
	if err != nil {
		t.Fatalf("reopening run db: %v", err)
	}
	defer db2.Close()

	summaries, err := db2.SummarizeRuns(10)
	if err != nil {
		t.Fatalf("SummarizeRuns error: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("len(summaries) = %d, want 1 recorded run", len(summaries))
	}
}
