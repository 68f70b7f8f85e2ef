package path

import "digcraft.gg/internal/sim/grid"

// Unreachable is the sentinel distance for cells with no route to the
// destination. Kept well under MaxInt so relaxation sums cannot overflow.
const Unreachable = 1<<30 - 1

// Field is one destination's accumulated cost-to-goal over the grid.
//
// Invariant after every compute/update: for each reachable cell c other than
// the destination, Dist[c] = min over permitted steps c->n of Dist[n] +
// weight(c); the destination itself is pinned at 0. Propagation therefore
// runs over the reversed weighted graph, goal outward.
type Field struct {
	W, H int
	Dest grid.Coord
	Dist []int

	// Reusable heap buffer across recomputes.
	heap fieldHeap
}

func NewField(g *grid.Grid, dest grid.Coord) *Field {
	size := g.Width() * g.Height()
	return &Field{
		W:    g.Width(),
		H:    g.Height(),
		Dest: dest,
		Dist: make([]int, size),
		heap: make(fieldHeap, 0, size/4),
	}
}

// At returns the stored cost-to-goal, Unreachable when out of bounds.
func (f *Field) At(c grid.Coord) int {
	if c.X < 0 || c.Y < 0 || c.X >= f.W || c.Y >= f.H {
		return Unreachable
	}
	return f.Dist[c.Y*f.W+c.X]
}

// ComputeFull rebuilds the whole field with a destination-rooted Dijkstra run.
func (f *Field) ComputeFull(g *grid.Grid) {
	for i := range f.Dist {
		f.Dist[i] = Unreachable
	}
	if !g.InBounds(f.Dest.X, f.Dest.Y) {
		return
	}
	destIdx := f.Dest.Y*f.W + f.Dest.X
	f.Dist[destIdx] = 0

	f.heap = f.heap[:0]
	f.heap.push(fieldEntry{idx: destIdx, dist: 0})
	f.drain(g)
}

// UpdateFromSources repairs the field after a grid change, touching only the
// affected region. changed is the exact set of mutated cells; the repair also
// re-examines their neighbors because a mutation can add or remove diagonal
// steps between two cells that did not change themselves (the mutated cell is
// their corner).
//
// Two passes. Raise: walk outward from the dirty set invalidating every
// stored value whose support is gone: a cell whose recomputed best exceeds
// its stored cost was depending on something that got worse. Lower: seed a
// Dijkstra relaxation from the dirty set plus the invalidated region and run
// it to quiescence. Worst case (a long wall removed) this degrades to the
// cost of a full rebuild, never worse.
func (f *Field) UpdateFromSources(g *grid.Grid, changed []grid.Coord) {
	if len(changed) == 0 {
		return
	}
	seen := make(map[int]struct{}, len(changed)*9)
	seeds := make([]int, 0, len(changed)*9)
	add := func(x, y int) {
		if !g.InBounds(x, y) {
			return
		}
		i := y*f.W + x
		if _, dup := seen[i]; dup {
			return
		}
		seen[i] = struct{}{}
		seeds = append(seeds, i)
	}
	for _, c := range changed {
		add(c.X, c.Y)
		for _, d := range dirVectors {
			add(c.X+d[0], c.Y+d[1])
		}
	}

	// Raise pass.
	queue := append([]int(nil), seeds...)
	invalidated := make([]int, 0, len(seeds))
	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if f.Dist[i] == Unreachable {
			continue
		}
		if best := f.bestFromNeighbors(g, i); best > f.Dist[i] {
			f.Dist[i] = Unreachable
			invalidated = append(invalidated, i)
			x, y := i%f.W, i/f.W
			for _, d := range dirVectors {
				nx, ny := x+d[0], y+d[1]
				if !g.InBounds(nx, ny) {
					continue
				}
				if ni := ny*f.W + nx; f.Dist[ni] != Unreachable {
					queue = append(queue, ni)
				}
			}
		}
	}

	// Lower pass.
	f.heap = f.heap[:0]
	relax := func(i int) {
		if best := f.bestFromNeighbors(g, i); best < f.Dist[i] {
			f.Dist[i] = best
			f.heap.push(fieldEntry{idx: i, dist: best})
		}
	}
	for _, i := range seeds {
		relax(i)
	}
	for _, i := range invalidated {
		relax(i)
	}
	f.drain(g)
}

// drain runs goal-outward relaxation until the heap empties.
func (f *Field) drain(g *grid.Grid) {
	for len(f.heap) > 0 {
		e := f.heap.pop()
		if e.dist > f.Dist[e.idx] {
			continue // stale entry
		}
		nx, ny := e.idx%f.W, e.idx/f.W
		n := grid.Coord{X: nx, Y: ny}
		for _, d := range dirVectors {
			c := grid.Coord{X: nx + d[0], Y: ny + d[1]}
			if !g.InBounds(c.X, c.Y) {
				continue
			}
			w, ok := g.CellAt(c.X, c.Y).Weight()
			if !ok {
				continue
			}
			if !stepAllowed(g, c, n, defaultPassable) {
				continue
			}
			ci := c.Y*f.W + c.X
			if nd := e.dist + w; nd < f.Dist[ci] {
				f.Dist[ci] = nd
				f.heap.push(fieldEntry{idx: ci, dist: nd})
			}
		}
	}
}

// bestFromNeighbors recomputes a cell's cost from current neighbor values:
// min over permitted steps of neighbor cost plus own weight. The destination
// is special-cased at 0 always.
func (f *Field) bestFromNeighbors(g *grid.Grid, i int) int {
	x, y := i%f.W, i/f.W
	if x == f.Dest.X && y == f.Dest.Y {
		return 0
	}
	c := grid.Coord{X: x, Y: y}
	w, ok := g.CellAt(x, y).Weight()
	if !ok {
		return Unreachable
	}
	best := Unreachable
	for _, d := range dirVectors {
		n := grid.Coord{X: x + d[0], Y: y + d[1]}
		if !g.InBounds(n.X, n.Y) {
			continue
		}
		nd := f.Dist[n.Y*f.W+n.X]
		if nd == Unreachable {
			continue
		}
		if !stepAllowed(g, c, n, defaultPassable) {
			continue
		}
		if cand := nd + w; cand < best {
			best = cand
		}
	}
	return best
}

// --- Min-heap keyed by tentative cost ---

type fieldEntry struct {
	idx  int // flat grid index (y*width + x)
	dist int
}

type fieldHeap []fieldEntry

func (h *fieldHeap) push(e fieldEntry) {
	*h = append(*h, e)
	i := len(*h) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if (*h)[parent].dist <= (*h)[i].dist {
			break
		}
		(*h)[parent], (*h)[i] = (*h)[i], (*h)[parent]
		i = parent
	}
}

func (h *fieldHeap) pop() fieldEntry {
	old := *h
	n := len(old)
	e := old[0]
	old[0] = old[n-1]
	*h = old[:n-1]

	i := 0
	for {
		left := 2*i + 1
		if left >= len(*h) {
			break
		}
		smallest := left
		if right := left + 1; right < len(*h) && (*h)[right].dist < (*h)[left].dist {
			smallest = right
		}
		if (*h)[i].dist <= (*h)[smallest].dist {
			break
		}
		(*h)[i], (*h)[smallest] = (*h)[smallest], (*h)[i]
		i = smallest
	}
	return e
}
