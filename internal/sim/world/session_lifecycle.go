package world

import (
	"fmt"
	"strings"

	"digcraft.gg/internal/protocol"
	"digcraft.gg/internal/sim/encoding"
	"digcraft.gg/internal/sim/grid"
	"digcraft.gg/internal/sim/path"
)

func normalizeClientName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "anonymous"
	}
	if len(name) > 32 {
		name = name[:32]
	}
	return name
}

// joinSession creates the agent (or a bare observer registration) and
// returns the WELCOME. Agents spawn on the nearest free Empty cell to the
// grid center, get an occupancy entry, and a live flow field rooted at
// their spawn so other agents can path to them immediately.
func (w *World) joinSession(req JoinRequest, nowTick uint64) JoinResponse {
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		WorldParams: protocol.WorldParams{
			Width:      w.grid.Width(),
			Height:     w.grid.Height(),
			CellSize:   w.grid.CellSize(),
			TickRateHz: w.cfg.TickRateHz,
			Seed:       w.cfg.Gen.Seed,
		},
	}

	if req.Observer {
		id := fmt.Sprintf("O%06d", w.nextAgentNum.Add(1))
		welcome.AgentID = id
		if req.Out != nil {
			w.clients[id] = &clientState{Out: req.Out, Observer: true}
		}
		return JoinResponse{Welcome: welcome, GridSync: w.buildGridSync(nowTick)}
	}

	agentID := w.newAgentID()
	spawn, ok := w.findSpawn(w.grid.Width()/2, w.grid.Height()/2, w.grid.Width()+w.grid.Height())
	if !ok {
		// Pathological grid with no free Empty cell anywhere. Park the agent
		// at the center; it simply cannot move until terrain is mined.
		spawn = grid.Coord{X: w.grid.Width() / 2, Y: w.grid.Height() / 2}
	}

	a := &Agent{ID: agentID, Name: normalizeClientName(req.Name), Pos: spawn}
	w.agents[agentID] = a
	w.agentCount.Add(1)
	w.occupy(agentID, spawn)
	if err := w.dir.RegisterAgent(agentID, spawn); err != nil && w.log != nil {
		w.log.Printf("tick %d: register agent field %s: %v", nowTick, agentID, err)
	}
	if req.Out != nil {
		w.clients[agentID] = &clientState{Out: req.Out}
	}

	welcome.AgentID = agentID
	welcome.Spawn = &[2]int{spawn.X, spawn.Y}
	return JoinResponse{Welcome: welcome, GridSync: w.buildGridSync(nowTick)}
}

// buildGridSync snapshots the whole grid as one RLE payload. Cheap enough to
// do per join: fresh or lightly mined grids collapse to a few runs.
func (w *World) buildGridSync(nowTick uint64) *protocol.GridMsg {
	width, height := w.grid.Width(), w.grid.Height()
	n := width * height
	types := make([]uint8, n)
	hps := make([]int, n)
	weights := make([]uint8, n)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := w.grid.CellAt(x, y)
			i := y*width + x
			types[i] = uint8(c.Type)
			hps[i] = c.HP
			weights[i] = c.WeightOverride
		}
	}
	payload, err := encoding.EncodeCellsRLE(types, hps, weights)
	if err != nil {
		if w.log != nil {
			w.log.Printf("tick %d: encode grid sync: %v", nowTick, err)
		}
		return nil
	}
	return &protocol.GridMsg{
		Type:   protocol.TypeGridSync,
		Tick:   nowTick,
		Width:  width,
		Height: height,
		Cells:  payload,
	}
}

func (w *World) handleLeave(agentID string) {
	a := w.agents[agentID]
	if a == nil {
		return
	}
	w.vacate(agentID, a.Pos)
	w.dir.Remove(path.AgentKey(agentID))
	delete(w.agents, agentID)
	w.agentCount.Add(-1)
	delete(w.clients, agentID)
}

// findSpawn walks outward in square rings from (cx, cy) looking for an
// unoccupied Empty cell. Deterministic scan order keeps replays exact.
func (w *World) findSpawn(cx, cy, maxRadius int) (grid.Coord, bool) {
	for r := 0; r <= maxRadius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if maxAbs(dx, dy) != r {
					continue
				}
				c := grid.Coord{X: cx + dx, Y: cy + dy}
				if w.grid.CellAt(c.X, c.Y).Type != grid.Empty {
					continue
				}
				if len(w.occupancy[c]) > 0 {
					continue
				}
				return c, true
			}
		}
	}
	return grid.Coord{}, false
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}

func (w *World) occupy(agentID string, c grid.Coord) {
	set := w.occupancy[c]
	if set == nil {
		set = map[string]struct{}{}
		w.occupancy[c] = set
	}
	set[agentID] = struct{}{}
}

func (w *World) vacate(agentID string, c grid.Coord) {
	set := w.occupancy[c]
	if set == nil {
		return
	}
	delete(set, agentID)
	if len(set) == 0 {
		delete(w.occupancy, c)
	}
}

// AgentsAt reports the agents standing on a cell. Loop goroutine only.
func (w *World) AgentsAt(c grid.Coord) int {
	return len(w.occupancy[c])
}
