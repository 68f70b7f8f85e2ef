package world

import (
	"encoding/json"
	"testing"

	"digcraft.gg/internal/protocol"
	"digcraft.gg/internal/sim/grid"
	"digcraft.gg/internal/sim/path"
)

func testConfig() WorldConfig {
	return WorldConfig{
		ID:         "test",
		TickRateHz: 20,
		Gen: grid.GenConfig{
			Width: 16, Height: 16, CellSize: 1.0, Seed: 7,
			DiggableHP: 50, ClearingRadius: 3,
		},
		FixedDestinations: []FixedDestination{{ID: "center", X: 8, Y: 8}},
	}
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := NewWorld(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return w
}

func joinOne(t *testing.T, w *World, name string, out chan []byte) string {
	t.Helper()
	resp := make(chan JoinResponse, 1)
	w.StepOnce([]JoinRequest{{Name: name, Out: out, Resp: resp}}, nil, nil)
	r := <-resp
	if r.Welcome.AgentID == "" {
		t.Fatalf("join produced no agent id")
	}
	if r.GridSync == nil {
		t.Fatalf("join produced no grid sync")
	}
	return r.Welcome.AgentID
}

func drainCells(t *testing.T, out chan []byte) []protocol.CellsMsg {
	t.Helper()
	var msgs []protocol.CellsMsg
	for {
		select {
		case b := <-out:
			var base protocol.BaseMessage
			if err := json.Unmarshal(b, &base); err != nil {
				t.Fatalf("bad frame: %v", err)
			}
			if base.Type != protocol.TypeCells {
				continue
			}
			var m protocol.CellsMsg
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatalf("bad CELLS: %v", err)
			}
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestJoin_SpawnsInClearingAndRegistersField(t *testing.T) {
	w := newTestWorld(t)
	id := joinOne(t, w, "miner", make(chan []byte, 16))

	a := w.agents[id]
	if a == nil {
		t.Fatalf("agent not in roster")
	}
	if w.grid.CellAt(a.Pos.X, a.Pos.Y).Type != grid.Empty {
		t.Fatalf("spawned on non-empty cell %v", a.Pos)
	}
	if !w.dir.Has(path.AgentKey(id)) {
		t.Fatalf("agent flow field not registered")
	}
	if len(w.occupancy[a.Pos]) != 1 {
		t.Fatalf("occupancy not tracked at %v", a.Pos)
	}
}

func TestStep_SpawnerBatchEmitsOneCellsEvent(t *testing.T) {
	w := newTestWorld(t)
	out := make(chan []byte, 16)
	id := joinOne(t, w, "miner", out)
	drainCells(t, out)

	mutate := &protocol.MutateMsg{Ops: []protocol.MutateOp{{
		Op:     protocol.OpInstallSpawners,
		Coords: [][2]int{{12, 12}},
	}}}
	w.StepOnce(nil, nil, []ActionEnvelope{{AgentID: id, Mutate: mutate}})

	msgs := drainCells(t, out)
	if len(msgs) != 1 {
		t.Fatalf("got %d CELLS events, want exactly 1 for the whole batch", len(msgs))
	}
	if len(msgs[0].Cells) != 9 {
		t.Fatalf("event carries %d cells, want 9 (spawner + cleared ring)", len(msgs[0].Cells))
	}
	for i := 1; i < len(msgs[0].Cells); i++ {
		a, b := msgs[0].Cells[i-1].Pos, msgs[0].Cells[i].Pos
		if a[1] > b[1] || (a[1] == b[1] && a[0] >= b[0]) {
			t.Fatalf("cells not in row-major order: %v before %v", a, b)
		}
	}
}

func TestStep_DamageReplicatesWithoutFieldRepair(t *testing.T) {
	w := newTestWorld(t)
	out := make(chan []byte, 16)
	id := joinOne(t, w, "miner", out)
	drainCells(t, out)

	// A diggable cell outside the clearing.
	target := [2]int{1, 1}
	if w.grid.CellAt(1, 1).Type != grid.Diggable {
		t.Fatalf("expected diggable at (1,1)")
	}

	mutate := &protocol.MutateMsg{Ops: []protocol.MutateOp{{
		Op: protocol.OpDamage, Pos: &target, Amount: 20,
	}}}
	w.StepOnce(nil, nil, []ActionEnvelope{{AgentID: id, Mutate: mutate}})

	msgs := drainCells(t, out)
	if len(msgs) != 1 {
		t.Fatalf("hp-only damage must still replicate, got %d events", len(msgs))
	}
	c := msgs[0].Cells[0]
	if c.CellType != "DIGGABLE" || c.HP != 30 {
		t.Fatalf("replicated cell = %+v, want DIGGABLE hp=30", c)
	}
}

func TestApplyDamageAt_ReturnsReplicatedCells(t *testing.T) {
	w := newTestWorld(t)
	target := grid.Coord{X: 1, Y: 1}
	if w.grid.CellAt(1, 1).Type != grid.Diggable {
		t.Fatalf("expected diggable at (1,1)")
	}

	// hp-only hit replicates and must say so.
	if got := w.ApplyDamageAt(target, 20, 0); len(got) != 1 || got[0] != target {
		t.Fatalf("hp-only hit returned %v, want [%v]", got, target)
	}
	// Depleting hit flips the type.
	if got := w.ApplyDamageAt(target, 50, 0); len(got) != 1 || got[0] != target {
		t.Fatalf("depleting hit returned %v, want [%v]", got, target)
	}
	if w.grid.CellAt(1, 1).Type != grid.Empty {
		t.Fatalf("cell not depleted to Empty")
	}
	// No-op hits return nil: already-empty cell, solid border, zero amount.
	if got := w.ApplyDamageAt(target, 10, 0); got != nil {
		t.Fatalf("empty-cell hit returned %v, want nil", got)
	}
	if got := w.ApplyDamageAt(grid.Coord{X: 0, Y: 0}, 10, 0); got != nil {
		t.Fatalf("solid-cell hit returned %v, want nil", got)
	}
	if got := w.ApplyDamageAt(grid.Coord{X: 2, Y: 1}, 0, 0); got != nil {
		t.Fatalf("zero-amount hit returned %v, want nil", got)
	}
}

func TestStep_MoveValidationAndFieldRefresh(t *testing.T) {
	w := newTestWorld(t)
	id := joinOne(t, w, "miner", make(chan []byte, 16))
	a := w.agents[id]
	start := a.Pos

	// Legal step into the adjacent clearing cell.
	to := [2]int{start.X + 1, start.Y}
	w.StepOnce(nil, nil, []ActionEnvelope{{AgentID: id, Move: &protocol.MoveMsg{To: to}}})
	if a.Pos != (grid.Coord{X: to[0], Y: to[1]}) {
		t.Fatalf("agent at %v, want %v", a.Pos, to)
	}
	if dest, _ := w.dir.Destination(path.AgentKey(id)); dest != a.Pos {
		t.Fatalf("agent field dest %v, want %v", dest, a.Pos)
	}
	if len(w.occupancy[start]) != 0 {
		t.Fatalf("old cell still occupied")
	}

	// Teleport attempt is dropped.
	w.StepOnce(nil, nil, []ActionEnvelope{{AgentID: id, Move: &protocol.MoveMsg{To: [2]int{0, 0}}}})
	if a.Pos != (grid.Coord{X: to[0], Y: to[1]}) {
		t.Fatalf("teleport was not rejected: %v", a.Pos)
	}
}

func TestStepOnce_DeterministicDigests(t *testing.T) {
	run := func() []string {
		w, err := NewWorld(testConfig(), nil)
		if err != nil {
			t.Fatalf("NewWorld: %v", err)
		}
		var digests []string
		_, d := w.StepOnce([]JoinRequest{{Name: "a"}, {Name: "b"}}, nil, nil)
		digests = append(digests, d)

		spawnerOp := &protocol.MutateMsg{Ops: []protocol.MutateOp{{
			Op: protocol.OpInstallSpawners, Coords: [][2]int{{3, 3}, {12, 4}},
		}}}
		_, d = w.StepOnce(nil, nil, []ActionEnvelope{{AgentID: "A000001", Mutate: spawnerOp}})
		digests = append(digests, d)

		pos := [2]int{2, 12}
		_, d = w.StepOnce(nil, []string{"A000002"}, []ActionEnvelope{{AgentID: "A000001", Mutate: &protocol.MutateMsg{
			Ops: []protocol.MutateOp{{Op: protocol.OpDamage, Pos: &pos, Amount: 50}},
		}}})
		digests = append(digests, d)
		return digests
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tick %d diverged:\n  %s\n  %s", i, a[i], b[i])
		}
	}
	if a[0] == a[1] || a[1] == a[2] {
		t.Fatalf("digest did not change across mutating ticks")
	}
}

func TestStepOnce_JournalEntriesRecordInputs(t *testing.T) {
	w := newTestWorld(t)
	var entries []TickLogEntry
	w.SetTickLogger(tickLoggerFunc(func(e TickLogEntry) error {
		entries = append(entries, e)
		return nil
	}))

	id := joinOne(t, w, "miner", nil)
	pos := [2]int{1, 1}
	w.StepOnce(nil, nil, []ActionEnvelope{{AgentID: id, Mutate: &protocol.MutateMsg{
		Ops: []protocol.MutateOp{{Op: protocol.OpDamage, Pos: &pos, Amount: 10}},
	}}})

	if len(entries) != 2 {
		t.Fatalf("got %d journal entries, want 2", len(entries))
	}
	if len(entries[0].Joins) != 1 || entries[0].Joins[0].AgentID != id {
		t.Fatalf("join not recorded: %+v", entries[0])
	}
	if len(entries[1].Actions) != 1 || entries[1].Actions[0].Mutate == nil {
		t.Fatalf("action not recorded: %+v", entries[1])
	}
	if entries[0].Digest == "" || entries[0].Digest == entries[1].Digest {
		t.Fatalf("digests missing or frozen across ticks")
	}
}

type tickLoggerFunc func(TickLogEntry) error

func (f tickLoggerFunc) WriteTick(e TickLogEntry) error { return f(e) }

func TestResolvePathMsg_Shapes(t *testing.T) {
	w := newTestWorld(t)

	// Request translation and facade behavior, loop-goroutine form.
	req, ok := pathRequestFromMsg(&protocol.PathMsg{
		RequestID: "r1",
		Start:     [2]int{8, 8},
		Goal:      [2]int{8, 8},
		DestinationKey: &protocol.DestKey{
			Kind: "FIXED", ID: "center",
		},
	})
	if !ok {
		t.Fatalf("valid msg rejected")
	}
	cells, err := w.PathFor(req)
	if err != nil || len(cells) != 1 {
		t.Fatalf("trivial path: %v, %v", cells, err)
	}

	if _, ok := pathRequestFromMsg(&protocol.PathMsg{
		Start: [2]int{0, 0}, Goal: [2]int{1, 1},
		DestinationKey: &protocol.DestKey{Kind: "NONSENSE", ID: "x"},
	}); ok {
		t.Fatalf("unknown key kind accepted")
	}
	if _, ok := pathRequestFromMsg(&protocol.PathMsg{
		Start: [2]int{0, 0}, Goal: [2]int{1, 1},
		Traversable: []string{"LAVA"},
	}); ok {
		t.Fatalf("unknown cell type accepted")
	}
}

func TestLeave_TearsDownAgentState(t *testing.T) {
	w := newTestWorld(t)
	id := joinOne(t, w, "miner", make(chan []byte, 16))
	pos := w.agents[id].Pos

	w.StepOnce(nil, []string{id}, nil)

	if w.agents[id] != nil {
		t.Fatalf("agent still in roster")
	}
	if w.dir.Has(path.AgentKey(id)) {
		t.Fatalf("agent field still registered")
	}
	if len(w.occupancy[pos]) != 0 {
		t.Fatalf("occupancy entry leaked")
	}
	if w.clients[id] != nil {
		t.Fatalf("client queue leaked")
	}
}
