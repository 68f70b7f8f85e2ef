package world

import (
	"digcraft.gg/internal/sim/grid"
	"digcraft.gg/internal/sim/tuning"
)

// ConfigFromTuning maps the operator knob file onto a world config. Replay
// relies on this mapping being stable: the same tuning must always produce
// the same world.
func ConfigFromTuning(worldID string, tune tuning.Tuning) WorldConfig {
	cfg := WorldConfig{
		ID:         worldID,
		TickRateHz: tune.TickRateHz,
		Gen: grid.GenConfig{
			Width:          tune.Grid.Width,
			Height:         tune.Grid.Height,
			CellSize:       tune.Grid.CellSize,
			Seed:           tune.Grid.Seed,
			DiggableHP:     tune.Grid.DiggableHP,
			ClearingRadius: tune.Grid.ClearingRadius,
			HardPermille:   tune.Grid.HardPermille,
			HardWeight:     uint8(tune.Grid.HardWeight),
		},
	}
	for _, fd := range tune.FixedDestinations {
		cfg.FixedDestinations = append(cfg.FixedDestinations, FixedDestination{ID: fd.ID, X: fd.X, Y: fd.Y})
	}
	return cfg
}
