package world

import (
	"fmt"
	"log"
	"sync/atomic"

	"digcraft.gg/internal/sim/grid"
	"digcraft.gg/internal/sim/path"
)

// World owns the authoritative grid and everything derived from it. All
// mutable state is touched only by the loop goroutine; external callers talk
// to it through channels (see runtime_api.go).
type World struct {
	cfg WorldConfig
	log *log.Logger

	tick atomic.Uint64

	grid   *grid.Grid
	dir    *path.Directory
	facade *path.Facade

	agents  map[string]*Agent
	clients map[string]*clientState

	// Occupancy side table: which agents stand on which cell. Cells hold no
	// occupant data themselves; everything movement-related reads this.
	occupancy map[grid.Coord]map[string]struct{}

	inbox   chan ActionEnvelope
	join    chan JoinRequest
	leave   chan string
	pathReq chan pathRequest
	stop    chan struct{}

	nextAgentNum atomic.Uint64
	agentCount   atomic.Int64

	// Per-tick counter for index bookkeeping; reset at the top of step.
	cellsChangedThisTick int

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	tickLogger TickLogger
	indexer    TickIndexer
}

type clientState struct {
	Out      chan []byte
	Observer bool
}

type Agent struct {
	ID   string
	Name string
	Pos  grid.Coord
}

func NewWorld(cfg WorldConfig, logger *log.Logger) (*World, error) {
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("world: tick rate must be positive, got %d", cfg.TickRateHz)
	}
	if cfg.Gen.Width < 3 || cfg.Gen.Height < 3 {
		return nil, fmt.Errorf("world: grid %dx%d too small", cfg.Gen.Width, cfg.Gen.Height)
	}
	g := grid.Generate(cfg.Gen)
	dir := path.NewDirectory(g)
	w := &World{
		cfg:       cfg,
		log:       logger,
		grid:      g,
		dir:       dir,
		facade:    path.NewFacade(g, dir),
		agents:    map[string]*Agent{},
		clients:   map[string]*clientState{},
		occupancy: map[grid.Coord]map[string]struct{}{},
		inbox:     make(chan ActionEnvelope, 256),
		join:      make(chan JoinRequest, 16),
		leave:     make(chan string, 16),
		pathReq:   make(chan pathRequest, 64),
		stop:      make(chan struct{}),
	}
	for _, fd := range cfg.FixedDestinations {
		if err := dir.RegisterFixed(fd.ID, grid.Coord{X: fd.X, Y: fd.Y}); err != nil {
			return nil, fmt.Errorf("world: fixed destination %q at (%d,%d): %w", fd.ID, fd.X, fd.Y, err)
		}
	}
	return w, nil
}

func (w *World) ID() string      { return w.cfg.ID }
func (w *World) TickRateHz() int { return w.cfg.TickRateHz }

// Tick reports the next tick to be executed. Safe from any goroutine.
func (w *World) Tick() uint64 { return w.tick.Load() }

// AgentCount reports the live agent roster size. Safe from any goroutine.
func (w *World) AgentCount() int { return int(w.agentCount.Load()) }

// SetTickLogger must be called before Run.
func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

// SetIndexer must be called before Run.
func (w *World) SetIndexer(ix TickIndexer) { w.indexer = ix }

// Grid exposes the underlying grid for read-only use (replay, tests). The
// world loop owns all writes.
func (w *World) Grid() *grid.Grid { return w.grid }

// Directory exposes the flow-field directory for diagnostics and tests.
func (w *World) Directory() *path.Directory { return w.dir }

func (w *World) newAgentID() string {
	n := w.nextAgentNum.Add(1)
	return fmt.Sprintf("A%06d", n)
}
