package path

import "digcraft.gg/internal/sim/grid"

// Directory owns the registry of destination keys to distance fields. It is
// the fan-out point for grid changes: one terrain event repairs every live
// field. Accessed only from the world loop goroutine.
type Directory struct {
	g       *grid.Grid
	records map[Key]*Field
}

func NewDirectory(g *grid.Grid) *Directory {
	return &Directory{
		g:       g,
		records: map[Key]*Field{},
	}
}

// RegisterFixed creates or replaces the field for a stable fixed-point
// destination and builds it in full.
func (d *Directory) RegisterFixed(id string, dest grid.Coord) error {
	return d.register(FixedKey(id), dest)
}

// RegisterAgent creates or replaces the live field tracking an agent's cell.
// These records churn on every cell transition; the old field is discarded
// rather than repaired because the destination itself moved, not the terrain.
func (d *Directory) RegisterAgent(identity string, dest grid.Coord) error {
	return d.register(AgentKey(identity), dest)
}

func (d *Directory) register(key Key, dest grid.Coord) error {
	if !d.g.InBounds(dest.X, dest.Y) {
		return ErrOutOfBounds
	}
	f := d.records[key]
	if f == nil {
		f = NewField(d.g, dest)
		d.records[key] = f
	}
	f.Dest = dest
	f.ComputeFull(d.g)
	return nil
}

func (d *Directory) Remove(key Key) {
	delete(d.records, key)
}

func (d *Directory) Has(key Key) bool {
	_, ok := d.records[key]
	return ok
}

// Destination reports the cell a key's field is rooted at.
func (d *Directory) Destination(key Key) (grid.Coord, bool) {
	f := d.records[key]
	if f == nil {
		return grid.Coord{}, false
	}
	return f.Dest, true
}

// CostAt exposes a record's stored cost-to-goal for a cell (Unreachable when
// absent). Intended for diagnostics and tests.
func (d *Directory) CostAt(key Key, c grid.Coord) int {
	f := d.records[key]
	if f == nil {
		return Unreachable
	}
	return f.At(c)
}

// OnGridChanged incrementally repairs every live field. Callers batch all
// cells of one mutation into a single call so repair runs one amortized pass
// per field instead of one per cell.
func (d *Directory) OnGridChanged(changed []grid.Coord) {
	if len(changed) == 0 {
		return
	}
	for _, f := range d.records {
		f.UpdateFromSources(d.g, changed)
	}
}

// PathFrom extracts a path by greedy cost descent: from start, repeatedly
// step to the neighbor with strictly lower stored cost until the destination
// is reached. The iteration budget of one full grid guards against cycles in
// an inconsistent field.
func (d *Directory) PathFrom(key Key, start grid.Coord) ([]grid.Coord, error) {
	f := d.records[key]
	if f == nil {
		return nil, ErrNoRecord
	}
	if !d.g.InBounds(start.X, start.Y) {
		return nil, ErrOutOfBounds
	}
	if f.At(start) == Unreachable {
		return nil, ErrUnreachable
	}

	cells := []grid.Coord{start}
	cur := start
	for budget := f.W * f.H; cur != f.Dest && budget > 0; budget-- {
		best := cur
		bestCost := f.At(cur)
		for _, dv := range dirVectors {
			n := grid.Coord{X: cur.X + dv[0], Y: cur.Y + dv[1]}
			if !stepAllowed(d.g, cur, n, defaultPassable) {
				continue
			}
			if c := f.At(n); c < bestCost {
				best = n
				bestCost = c
			}
		}
		if best == cur {
			return nil, ErrInconsistent
		}
		cur = best
		cells = append(cells, cur)
	}
	if cur != f.Dest {
		return nil, ErrInconsistent
	}
	return cells, nil
}
