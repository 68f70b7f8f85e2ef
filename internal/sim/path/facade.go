package path

import "digcraft.gg/internal/sim/grid"

// Request is one path query. Key, when set, names a pre-registered flow
// field; Traversable, when non-empty, replaces the default passability rule
// (such requests always go to the stateless solver, since flow fields carry a
// single passability model).
type Request struct {
	Start       grid.Coord
	Goal        grid.Coord
	Key         Key
	Traversable []grid.CellType
}

// Facade routes path queries between the flow-field directory and the
// stateless A* solver, and normalizes the result contract: an ordered cell
// sequence from start to goal, or an error that always degrades to "no path".
type Facade struct {
	g   *grid.Grid
	dir *Directory
}

func NewFacade(g *grid.Grid, dir *Directory) *Facade {
	return &Facade{g: g, dir: dir}
}

// TryGetPath resolves a request. A live flow-field record is preferred when
// the request names one, but the returned path is verified to actually end at
// the requested goal; a mismatched or stale record falls back to the
// stateless solver instead of surfacing an error.
func (f *Facade) TryGetPath(req Request) ([]grid.Coord, error) {
	if len(req.Traversable) > 0 {
		return FindPath(f.g, req.Start, req.Goal, req.Traversable)
	}
	if !req.Key.IsZero() && f.dir.Has(req.Key) {
		cells, err := f.dir.PathFrom(req.Key, req.Start)
		if err == nil && len(cells) > 0 && cells[len(cells)-1] == req.Goal {
			return cells, nil
		}
		// Missing, unreachable, or pointing at a different goal: fall through.
	}
	return FindPath(f.g, req.Start, req.Goal, nil)
}
