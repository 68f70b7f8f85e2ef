package path

import (
	"container/heap"

	"digcraft.gg/internal/sim/grid"
)

// FindPath runs a stateless A* search between two cells. traversable, when
// non-empty, replaces the default passability rule with an explicit
// cell-type set (the diagonal corner rule still applies unchanged, so results
// stay consistent with the flow-field solver wherever the two overlap).
//
// The heuristic is the Chebyshev distance: with 8-way movement and
// unit-or-greater integer weights no path can take fewer steps than that, so
// it never overestimates.
func FindPath(g *grid.Grid, start, goal grid.Coord, traversable []grid.CellType) ([]grid.Coord, error) {
	if !g.InBounds(start.X, start.Y) || !g.InBounds(goal.X, goal.Y) {
		return nil, ErrOutOfBounds
	}
	passable := defaultPassable
	if len(traversable) > 0 {
		passable = passableTypes(traversable)
	}
	if !passable(g.CellAt(start.X, start.Y)) || !passable(g.CellAt(goal.X, goal.Y)) {
		return nil, ErrNoPath
	}
	if start == goal {
		return []grid.Coord{start}, nil
	}

	w := g.Width()
	size := w * g.Height()
	gScore := make([]int, size)
	for i := range gScore {
		gScore[i] = Unreachable
	}
	cameFrom := make([]int32, size)
	for i := range cameFrom {
		cameFrom[i] = -1
	}

	startIdx := start.Y*w + start.X
	goalIdx := goal.Y*w + goal.X
	gScore[startIdx] = 0

	open := &searchQueue{}
	heap.Init(open)
	heap.Push(open, &searchNode{idx: startIdx, g: 0, priority: chebyshev(start, goal)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*searchNode)
		if cur.idx == goalIdx {
			return reconstruct(cameFrom, w, goalIdx), nil
		}
		if cur.g > gScore[cur.idx] {
			continue // stale entry
		}
		curG := cur.g
		c := grid.Coord{X: cur.idx % w, Y: cur.idx / w}
		for _, d := range dirVectors {
			n := grid.Coord{X: c.X + d[0], Y: c.Y + d[1]}
			if !stepAllowed(g, c, n, passable) {
				continue
			}
			sw, _ := stepWeight(g.CellAt(n.X, n.Y), passable)
			ni := n.Y*w + n.X
			tentative := curG + sw
			if tentative >= gScore[ni] {
				continue
			}
			gScore[ni] = tentative
			cameFrom[ni] = int32(cur.idx)
			heap.Push(open, &searchNode{idx: ni, g: tentative, priority: tentative + chebyshev(n, goal)})
		}
	}
	return nil, ErrNoPath
}

func chebyshev(a, b grid.Coord) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

func reconstruct(cameFrom []int32, w, idx int) []grid.Coord {
	var rev []grid.Coord
	for i := int32(idx); i >= 0; i = cameFrom[i] {
		rev = append(rev, grid.Coord{X: int(i) % w, Y: int(i) / w})
	}
	out := make([]grid.Coord, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

type searchNode struct {
	idx      int
	g        int
	priority int
	heapIdx  int
}

type searchQueue []*searchNode

func (q searchQueue) Len() int           { return len(q) }
func (q searchQueue) Less(i, j int) bool { return q[i].priority < q[j].priority }
func (q searchQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIdx = i
	q[j].heapIdx = j
}

func (q *searchQueue) Push(x any) {
	n := x.(*searchNode)
	n.heapIdx = len(*q)
	*q = append(*q, n)
}

func (q *searchQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.heapIdx = -1
	*q = old[:n-1]
	return item
}
