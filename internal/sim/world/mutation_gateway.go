package world

import (
	"sort"

	"digcraft.gg/internal/protocol"
	"digcraft.gg/internal/sim/grid"
	"digcraft.gg/internal/sim/path"
)

// applyMutate executes a MUTATE message's ops in order. Each op batches its
// own changed-cell set: one flow-field repair pass and one CELLS event per
// op, however many cells it touched.
func (w *World) applyMutate(a *Agent, msg *protocol.MutateMsg, nowTick uint64) {
	for _, op := range msg.Ops {
		switch op.Op {
		case protocol.OpDamage:
			if op.Pos == nil {
				continue
			}
			w.ApplyDamageAt(grid.Coord{X: op.Pos[0], Y: op.Pos[1]}, op.Amount, nowTick)
		case protocol.OpInstallSpawners:
			coords := make([]grid.Coord, 0, len(op.Coords))
			for _, p := range op.Coords {
				coords = append(coords, grid.Coord{X: p[0], Y: p[1]})
			}
			w.InstallSpawners(coords, nowTick)
		case protocol.OpApplyWeights:
			overrides := make(map[grid.Coord]uint8, len(op.Weights))
			for _, e := range op.Weights {
				overrides[grid.Coord{X: e.Pos[0], Y: e.Pos[1]}] = e.Weight
			}
			w.ApplyMovementWeights(overrides, nowTick)
		default:
			if w.log != nil {
				w.log.Printf("tick %d: agent %s: unknown mutate op %q", nowTick, a.ID, op.Op)
			}
		}
	}
}

// ApplyDamageAt damages one cell and returns the cells that replicated. A
// depleted cell flips to Empty and triggers field repair; a hit that only
// lowers durability still replicates (and is still returned) so clients can
// render the damage, but leaves the fields alone. Nil means the hit was a
// no-op.
func (w *World) ApplyDamageAt(c grid.Coord, amount int, nowTick uint64) []grid.Coord {
	wasDiggable := w.grid.CellAt(c.X, c.Y).Type == grid.Diggable
	typeChanged := w.grid.ApplyDamage(c.X, c.Y, amount)
	if typeChanged {
		w.afterMutation([]grid.Coord{c}, nowTick)
		return []grid.Coord{c}
	}
	if wasDiggable && amount != 0 {
		w.emitCells([]grid.Coord{c}, nowTick)
		return []grid.Coord{c}
	}
	return nil
}

// InstallSpawners converts the given cells to enemy spawners, clearing their
// diggable neighborhoods. The whole batch repairs fields once.
func (w *World) InstallSpawners(coords []grid.Coord, nowTick uint64) []grid.Coord {
	var changed []grid.Coord
	seen := map[grid.Coord]struct{}{}
	for _, at := range coords {
		for _, c := range w.grid.InstallSpawner(at) {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			changed = append(changed, c)
		}
	}
	w.afterMutation(changed, nowTick)
	return changed
}

// ApplyMovementWeights updates terrain weight overrides as a single batch.
func (w *World) ApplyMovementWeights(overrides map[grid.Coord]uint8, nowTick uint64) []grid.Coord {
	changed := w.grid.ApplyWeightOverrides(overrides)
	w.afterMutation(changed, nowTick)
	return changed
}

// afterMutation is the single propagation point behind every terrain change:
// repair all live flow fields once for the batch, then replicate it.
func (w *World) afterMutation(changed []grid.Coord, nowTick uint64) {
	if len(changed) == 0 {
		return
	}
	sort.Slice(changed, func(i, j int) bool {
		if changed[i].Y != changed[j].Y {
			return changed[i].Y < changed[j].Y
		}
		return changed[i].X < changed[j].X
	})
	w.dir.OnGridChanged(changed)
	w.cellsChangedThisTick += len(changed)
	w.emitCells(changed, nowTick)
}

// emitCells fans one CELLS event out to every connected client. Slow clients
// lose the oldest queued message rather than stalling the loop.
func (w *World) emitCells(changed []grid.Coord, nowTick uint64) {
	if len(w.clients) == 0 {
		return
	}
	msg := protocol.CellsMsg{
		Type:  protocol.TypeCells,
		Tick:  nowTick,
		Cells: make([]protocol.CellState, 0, len(changed)),
	}
	for _, at := range changed {
		c := w.grid.CellAt(at.X, at.Y)
		msg.Cells = append(msg.Cells, protocol.CellState{
			Pos:      [2]int{c.X, c.Y},
			CellType: c.Type.String(),
			HP:       c.HP,
			Weight:   c.WeightOverride,
		})
	}
	b, err := marshalMsg(msg)
	if err != nil {
		if w.log != nil {
			w.log.Printf("tick %d: encode cells event: %v", nowTick, err)
		}
		return
	}
	for _, cl := range w.clients {
		sendLatest(cl.Out, b)
	}
}

// applyMove steps the agent one cell. The target must be adjacent and the
// step legal under the movement rule; anything else is dropped, the client
// resyncs from authoritative state. A successful step moves the agent's
// flow-field destination with it.
func (w *World) applyMove(a *Agent, msg *protocol.MoveMsg) {
	to := grid.Coord{X: msg.To[0], Y: msg.To[1]}
	if to == a.Pos {
		return
	}
	dx, dy := to.X-a.Pos.X, to.Y-a.Pos.Y
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
		return
	}
	if !path.StepAllowed(w.grid, a.Pos, to) {
		return
	}
	w.vacate(a.ID, a.Pos)
	a.Pos = to
	w.occupy(a.ID, to)
	if err := w.dir.RegisterAgent(a.ID, to); err != nil && w.log != nil {
		w.log.Printf("move: refresh agent field %s: %v", a.ID, err)
	}
}
