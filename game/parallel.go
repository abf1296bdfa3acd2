package game

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"formic/components"
	"formic/systems"
)

// parallelThreshold is the minimum ant count to use parallel processing.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// antSnapshot captures one ant's state for a worker. Workers mutate
// their private copies; results go back through the intent.
type antSnapshot struct {
	Entity ecs.Entity
	Pos    components.Position
	Vel    components.Velocity
	Ant    components.Ant
}

// antIntent is the post-update state to write back in the apply phase.
type antIntent struct {
	Pos components.Position
	Vel components.Velocity
	Ant components.Ant
}

// workChunk is a range of snapshot indices for one worker.
type workChunk struct {
	start, end int
	dt         float32
}

// parallelState holds resources for the parallel agent phase.
type parallelState struct {
	snapshots  []antSnapshot
	intents    []antIntent
	scratches  []*systems.AgentScratch
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newParallelState(seed int64) *parallelState {
	numWorkers := runtime.GOMAXPROCS(0)
	scratches := make([]*systems.AgentScratch, numWorkers)
	for i := range scratches {
		// Distinct streams per worker; results depend on chunking, the
		// same as any per-worker rng scheme.
		scratches[i] = systems.NewAgentScratch(seed + int64(i)*7919)
	}
	return &parallelState{
		numWorkers: numWorkers,
		scratches:  scratches,
		snapshots:  make([]antSnapshot, 0, 512),
		intents:    make([]antIntent, 0, 512),
	}
}

func (p *parallelState) startWorkers(g *Game) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(g, i)
	}
}

func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *parallelState) worker(g *Game, workerID int) {
	defer p.wg.Done()
	scratch := p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			g.computeChunk(chunk.start, chunk.end, scratch, chunk.dt)
			p.doneChan <- struct{}{}
		}
	}
}

// updateAnts runs the agent phase: snapshot, compute (parallel when the
// population is large enough), apply intents and queued deposits.
func (g *Game) updateAnts(dt float32) {
	// Phase A: snapshots (single-threaded)
	g.parallel.snapshots = g.parallel.snapshots[:0]

	query := g.antFilter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, vel, ant := query.Get()

		if ant.Dead {
			continue
		}

		g.parallel.snapshots = append(g.parallel.snapshots, antSnapshot{
			Entity: entity,
			Pos:    *pos,
			Vel:    *vel,
			Ant:    *ant,
		})
	}

	n := len(g.parallel.snapshots)
	if n == 0 {
		return
	}

	if cap(g.parallel.intents) < n {
		g.parallel.intents = make([]antIntent, n)
	}
	g.parallel.intents = g.parallel.intents[:n]

	// Phase B: compute
	if n < parallelThreshold {
		g.computeChunk(0, n, g.parallel.scratches[0], dt)
	} else {
		g.computeParallel(n, dt)
	}

	// Phase C: apply (single-threaded)
	g.applyIntents()
	g.applyDeposits()
}

func (g *Game) computeParallel(n int, dt float32) {
	if !g.parallel.running {
		g.parallel.startWorkers(g)
	}

	numWorkers := g.parallel.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	dispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		g.parallel.workChan <- workChunk{start: start, end: end, dt: dt}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-g.parallel.doneChan
	}
}

// computeChunk runs the behavior engine over a snapshot range. The
// engine touches only the snapshot copies plus read-only shared state
// (field, obstacles, food), so chunks are independent.
func (g *Game) computeChunk(i0, i1 int, scratch *systems.AgentScratch, dt float32) {
	for i := i0; i < i1; i++ {
		snap := &g.parallel.snapshots[i]
		intent := &g.parallel.intents[i]

		pos := snap.Pos
		vel := snap.Vel
		ant := snap.Ant

		g.engine.Update(&pos, &vel, &ant, dt, g.food, scratch)

		intent.Pos = pos
		intent.Vel = vel
		intent.Ant = ant
	}
}

// applyIntents writes computed state back to the ECS components.
func (g *Game) applyIntents() {
	for i := range g.parallel.snapshots {
		snap := &g.parallel.snapshots[i]
		intent := &g.parallel.intents[i]

		pos := g.posMap.Get(snap.Entity)
		vel := g.velMap.Get(snap.Entity)
		ant := g.antMap.Get(snap.Entity)
		if pos == nil || vel == nil || ant == nil {
			continue
		}

		*pos = intent.Pos
		*vel = intent.Vel
		*ant = intent.Ant
	}
}

// applyDeposits drains every worker's deposit queue into the field.
// Deposits commute, so worker order does not matter.
func (g *Game) applyDeposits() {
	for _, scratch := range g.parallel.scratches {
		for _, d := range scratch.Deposits {
			if d.Type == systems.TrailAlarm {
				g.field.DepositAlarm(d.X, d.Y, d.Amount)
				continue
			}
			g.field.Deposit(d.X, d.Y, d.Type, d.Amount, d.Colony, d.Source, g.obstacles)
		}
		scratch.Deposits = scratch.Deposits[:0]
	}
}
