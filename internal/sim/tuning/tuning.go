package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is the operator-facing knob file. Everything here has a sane
// default; a missing file means "run with defaults".
type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	Grid GridTuning `yaml:"grid"`

	Journal JournalTuning `yaml:"journal"`

	// Fixed destinations registered at startup (extraction points, base
	// entrances and the like).
	FixedDestinations []FixedDestination `yaml:"fixed_destinations"`
}

type GridTuning struct {
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	CellSize       float64 `yaml:"cell_size"`
	Seed           int64   `yaml:"seed"`
	DiggableHP     int     `yaml:"diggable_hp"`
	ClearingRadius int     `yaml:"clearing_radius"`
	HardPermille   int     `yaml:"hard_permille"`
	HardWeight     int     `yaml:"hard_weight"`
}

type JournalTuning struct {
	Enabled         bool   `yaml:"enabled"`
	Dir             string `yaml:"dir"`
	TicksPerSegment int    `yaml:"ticks_per_segment"`
}

type FixedDestination struct {
	ID string `yaml:"id"`
	X  int    `yaml:"x"`
	Y  int    `yaml:"y"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 20,
		Grid: GridTuning{
			Width:          128,
			Height:         128,
			CellSize:       1.0,
			Seed:           1337,
			DiggableHP:     100,
			ClearingRadius: 6,
			HardPermille:   120,
			HardWeight:     25,
		},
		Journal: JournalTuning{
			Enabled:         true,
			Dir:             "./data/journal",
			TicksPerSegment: 10000,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

func (t *Tuning) applyDefaults() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.Grid.Width <= 0 {
		t.Grid.Width = d.Grid.Width
	}
	if t.Grid.Height <= 0 {
		t.Grid.Height = d.Grid.Height
	}
	if t.Grid.CellSize <= 0 {
		t.Grid.CellSize = d.Grid.CellSize
	}
	if t.Grid.DiggableHP <= 0 {
		t.Grid.DiggableHP = d.Grid.DiggableHP
	}
	if t.Grid.HardWeight < 0 || t.Grid.HardWeight > 255 {
		t.Grid.HardWeight = d.Grid.HardWeight
	}
	if t.Journal.TicksPerSegment <= 0 {
		t.Journal.TicksPerSegment = d.Journal.TicksPerSegment
	}
	if t.Journal.Dir == "" {
		t.Journal.Dir = d.Journal.Dir
	}
}
