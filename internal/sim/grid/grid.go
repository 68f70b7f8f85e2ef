package grid

// CellType classifies one tile of the world grid.
type CellType uint8

const (
	Empty CellType = iota
	Solid
	Diggable
	EnemySpawner
)

func (t CellType) String() string {
	switch t {
	case Empty:
		return "EMPTY"
	case Solid:
		return "SOLID"
	case Diggable:
		return "DIGGABLE"
	case EnemySpawner:
		return "ENEMY_SPAWNER"
	default:
		return "UNKNOWN"
	}
}

// TypeFromString parses a textual cell type label. Returns false for unknown labels.
func TypeFromString(s string) (CellType, bool) {
	switch s {
	case "EMPTY":
		return Empty, true
	case "SOLID":
		return Solid, true
	case "DIGGABLE":
		return Diggable, true
	case "ENEMY_SPAWNER":
		return EnemySpawner, true
	}
	return Empty, false
}

type Coord struct {
	X, Y int
}

// Cell is one grid tile. HP is meaningful only while Type is Diggable.
// WeightOverride biases traversal cost for Diggable cells; 0 means no override.
type Cell struct {
	X, Y           int
	Type           CellType
	HP             int
	WeightOverride uint8
}

// DefaultDiggableWeight is the traversal cost of entering an unmined cell
// that carries no override.
const DefaultDiggableWeight = 10

// Weight returns the cost of entering the cell. ok is false for impassable cells.
func (c Cell) Weight() (w int, ok bool) {
	switch c.Type {
	case Empty:
		return 1, true
	case Diggable:
		if c.WeightOverride > 0 {
			return int(c.WeightOverride), true
		}
		return DefaultDiggableWeight, true
	default:
		// Solid and EnemySpawner block movement.
		return 0, false
	}
}

// Grid owns the cell array. Built once, mutated for the session lifetime,
// never resized. Cells are handed out by value only so invariants stay
// enforceable here.
type Grid struct {
	width    int
	height   int
	cellSize float64

	// Accessed only from the world loop goroutine.
	cells []Cell
}

func New(width, height int, cellSize float64) *Grid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if cellSize <= 0 {
		cellSize = 1
	}
	g := &Grid{
		width:    width,
		height:   height,
		cellSize: cellSize,
		cells:    make([]Cell, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.cells[y*width+x] = Cell{X: x, Y: y, Type: Empty}
		}
	}
	return g
}

func (g *Grid) Width() int        { return g.width }
func (g *Grid) Height() int       { return g.height }
func (g *Grid) CellSize() float64 { return g.cellSize }

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

func (g *Grid) index(x, y int) int { return y*g.width + x }

// CellAt returns a copy of the cell, or a Solid sentinel when out of bounds
// so callers treat the outside world as impassable.
func (g *Grid) CellAt(x, y int) Cell {
	if !g.InBounds(x, y) {
		return Cell{X: x, Y: y, Type: Solid}
	}
	return g.cells[g.index(x, y)]
}

// CellToWorldCenter maps a cell coordinate to the world-space center of the tile.
func (g *Grid) CellToWorldCenter(c Coord) (float64, float64) {
	return (float64(c.X) + 0.5) * g.cellSize, (float64(c.Y) + 0.5) * g.cellSize
}

// ApplyDamage reduces a Diggable cell's durability by abs(amount), clamped at
// zero. Depletion flips the cell to Empty and clears any weight override.
// Returns true only when the cell changed type; damage requests against
// Solid/Empty/EnemySpawner cells, non-positive amounts, and out-of-bounds
// coordinates are silently ignored (stale client predictions reach here).
func (g *Grid) ApplyDamage(x, y, amount int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	if amount < 0 {
		amount = -amount
	}
	if amount == 0 {
		return false
	}
	c := &g.cells[g.index(x, y)]
	if c.Type != Diggable {
		return false
	}
	c.HP -= amount
	if c.HP > 0 {
		return false
	}
	c.HP = 0
	c.Type = Empty
	c.WeightOverride = 0
	return true
}

// InstallSpawner turns the cell into an EnemySpawner and forces its eight
// Diggable neighbors to Empty (spawners require clearance). Idempotent: an
// existing spawner yields an empty changed set. Returns every coordinate
// whose cell changed, the spawner cell first.
func (g *Grid) InstallSpawner(at Coord) []Coord {
	if !g.InBounds(at.X, at.Y) {
		return nil
	}
	c := &g.cells[g.index(at.X, at.Y)]
	if c.Type == EnemySpawner {
		return nil
	}
	c.Type = EnemySpawner
	c.HP = 0
	c.WeightOverride = 0
	changed := []Coord{at}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := at.X+dx, at.Y+dy
			if !g.InBounds(nx, ny) {
				continue
			}
			n := &g.cells[g.index(nx, ny)]
			if n.Type != Diggable {
				continue
			}
			n.Type = Empty
			n.HP = 0
			n.WeightOverride = 0
			changed = append(changed, Coord{X: nx, Y: ny})
		}
	}
	return changed
}

// ApplyWeightOverrides updates the movement-weight override of Diggable cells.
// Entries for non-Diggable cells, out-of-bounds coordinates, and values equal
// to the current override are ignored. Returns the coordinates that changed.
func (g *Grid) ApplyWeightOverrides(overrides map[Coord]uint8) []Coord {
	var changed []Coord
	for at, w := range overrides {
		if !g.InBounds(at.X, at.Y) {
			continue
		}
		c := &g.cells[g.index(at.X, at.Y)]
		if c.Type != Diggable || c.WeightOverride == w {
			continue
		}
		c.WeightOverride = w
		changed = append(changed, at)
	}
	return changed
}

// ResetCell overwrites a cell wholesale. This is the explicit escape hatch for
// worldgen and admin resets; normal play never reverses type transitions.
func (g *Grid) ResetCell(c Cell) bool {
	if !g.InBounds(c.X, c.Y) {
		return false
	}
	if c.Type != Diggable {
		c.HP = 0
		c.WeightOverride = 0
	}
	g.cells[g.index(c.X, c.Y)] = c
	return true
}
