package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"formic/config"
	"formic/game"
	"formic/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	maxTicks := flag.Int("ticks", 18000, "Stop after N ticks")
	speed := flag.Int("speed", 1, "Simulation ticks per step")
	outputDir := flag.String("out", "", "Output directory for CSV logs and config snapshot")
	dbPath := flag.String("db", "", "SQLite run database path (empty = disabled)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = use config seed)")
	logInterval := flag.Int("log-interval", 0, "Ticks between world state logs (0 = use config)")
	quiet := flag.Bool("quiet", false, "Suppress world state logging")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *quiet {
		game.SetLogWriter(io.Discard)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = cfg.Worldgen.Seed
	}

	g := game.NewGame(rngSeed)
	defer g.Close()

	g.SetSpeed(*speed)
	if *logInterval > 0 {
		g.SetLogInterval(int32(*logInterval))
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create output: %v\n", err)
		os.Exit(1)
	}
	if om != nil {
		if err := om.WriteConfig(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config snapshot: %v\n", err)
			os.Exit(1)
		}
		g.SetOutput(om)
	}

	db, err := telemetry.OpenRunDB(*dbPath, rngSeed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open run db: %v\n", err)
		os.Exit(1)
	}
	if db != nil {
		g.SetRunDB(db)
	}

	game.Logf("starting simulation seed=%d ticks=%s speed=%d ants=%s",
		rngSeed,
		humanize.Comma(int64(*maxTicks)),
		*speed,
		humanize.Comma(int64(g.AliveCount())),
	)

	start := time.Now()
	for int(g.Tick()) < *maxTicks {
		g.Step()
	}
	elapsed := time.Since(start)

	ticksPerSec := float64(g.Tick()) / elapsed.Seconds()
	game.Logf("simulation finished ticks=%s wall=%s rate=%s ticks/s",
		humanize.Comma(int64(g.Tick())),
		elapsed.Round(time.Millisecond),
		humanize.CommafWithDigits(ticksPerSec, 0),
	)
	game.Logf("delivered=%s alive=%s",
		humanize.CommafWithDigits(g.TotalDelivered(), 1),
		humanize.Comma(int64(g.AliveCount())),
	)
	for _, c := range g.Colonies() {
		game.Logf("colony %d: population=%d deaths=%d stock=%.1f delivered=%s",
			c.ID, c.Population, c.Deaths, c.FoodStock,
			humanize.CommafWithDigits(c.Delivered, 1),
		)
	}
}
