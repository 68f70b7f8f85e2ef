package path

import "digcraft.gg/internal/sim/grid"

// Direction vectors, cardinals and diagonals interleaved:
// N, NE, E, SE, S, SW, W, NW.
var dirVectors = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// passableFn decides whether a cell may be entered. The default rule follows
// the movement-weight model; one-shot queries may substitute a custom set.
type passableFn func(grid.Cell) bool

func defaultPassable(c grid.Cell) bool {
	_, ok := c.Weight()
	return ok
}

// passableTypes builds a passability check from an explicit traversable-type
// set, bypassing the default weight-model rule.
func passableTypes(types []grid.CellType) passableFn {
	var allowed [4]bool
	for _, t := range types {
		if int(t) < len(allowed) {
			allowed[t] = true
		}
	}
	return func(c grid.Cell) bool {
		return int(c.Type) < len(allowed) && allowed[c.Type]
	}
}

// stepWeight is the cost of entering the cell under an optional custom
// passability rule. Types the weight model considers impassable but that a
// custom set admits cost the same as unmined terrain.
func stepWeight(c grid.Cell, passable passableFn) (int, bool) {
	if !passable(c) {
		return 0, false
	}
	if w, ok := c.Weight(); ok {
		return w, true
	}
	return grid.DefaultDiggableWeight, true
}

// stepAllowed reports whether an agent standing on from may move into to.
// Orthogonal steps only need a passable target. A diagonal step additionally
// requires from, to, and both flanking corner cells to be Empty; uncleared
// rock at a corner blocks the diagonal even though it is nominally
// traversable terrain.
func stepAllowed(g *grid.Grid, from, to grid.Coord, passable passableFn) bool {
	if !g.InBounds(to.X, to.Y) {
		return false
	}
	tc := g.CellAt(to.X, to.Y)
	if !passable(tc) {
		return false
	}
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx == 0 || dy == 0 {
		return true
	}
	if tc.Type != grid.Empty {
		return false
	}
	if g.CellAt(from.X, from.Y).Type != grid.Empty {
		return false
	}
	if g.CellAt(from.X, to.Y).Type != grid.Empty {
		return false
	}
	if g.CellAt(to.X, from.Y).Type != grid.Empty {
		return false
	}
	return true
}

// StepAllowed is the exported form of the movement rule under default
// passability, for callers validating single agent steps.
func StepAllowed(g *grid.Grid, from, to grid.Coord) bool {
	return stepAllowed(g, from, to, defaultPassable)
}

// Cost returns the cumulative traversal cost of a returned path: the sum of
// entered-cell weights, start excluded. Unreachable if any step is invalid
// under the default rule.
func Cost(g *grid.Grid, cells []grid.Coord) int {
	total := 0
	for i := 1; i < len(cells); i++ {
		if !stepAllowed(g, cells[i-1], cells[i], defaultPassable) {
			return Unreachable
		}
		w, _ := g.CellAt(cells[i].X, cells[i].Y).Weight()
		total += w
	}
	return total
}
