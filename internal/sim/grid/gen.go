package grid

// GenConfig drives the initial terrain fill. The grid is built once at world
// startup; everything afterwards goes through the mutation API.
type GenConfig struct {
	Width    int
	Height   int
	CellSize float64
	Seed     int64

	DiggableHP     int // durability of freshly generated terrain
	ClearingRadius int // radius of the Empty clearing around the grid center, 0 disables

	// Hard-terrain sprinkle: cells whose noise lands under the permille
	// threshold get a heavier movement weight without losing passability.
	HardPermille int
	HardWeight   uint8
}

// Generate fills a fresh grid: solid border, diggable interior with the
// configured durability, an optional central clearing, and deterministic
// hard-terrain weight overrides derived from the seed.
func Generate(cfg GenConfig) *Grid {
	g := New(cfg.Width, cfg.Height, cfg.CellSize)
	hp := cfg.DiggableHP
	if hp <= 0 {
		hp = 100
	}
	cx := g.width / 2
	cy := g.height / 2
	hard := clampPermille(cfg.HardPermille)

	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			c := Cell{X: x, Y: y}
			switch {
			case x == 0 || y == 0 || x == g.width-1 || y == g.height-1:
				c.Type = Solid
			case inClearing(x-cx, y-cy, cfg.ClearingRadius):
				c.Type = Empty
			default:
				c.Type = Diggable
				c.HP = hp
				if hard > 0 && cfg.HardWeight > 0 && hash2(cfg.Seed, x, y)%1000 < uint64(hard) {
					c.WeightOverride = cfg.HardWeight
				}
			}
			g.cells[g.index(x, y)] = c
		}
	}
	return g
}

func inClearing(dx, dy, radius int) bool {
	if radius <= 0 {
		return false
	}
	return dx*dx+dy*dy <= radius*radius
}

func clampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
