package path

import (
	"testing"

	"digcraft.gg/internal/sim/grid"
)

func TestStepAllowed_CornerClearanceProgression(t *testing.T) {
	// The diagonal (0,0)->(1,1) stays blocked while either flanking corner
	// holds rock, and opens only once both corners are mined out.
	g := buildGrid(t, []string{
		".d",
		"d.",
	})
	from := grid.Coord{X: 0, Y: 0}
	to := grid.Coord{X: 1, Y: 1}

	if StepAllowed(g, from, to) {
		t.Fatalf("diagonal allowed with both corners blocked")
	}
	if !g.ApplyDamage(1, 0, 100) {
		t.Fatalf("first dig should deplete")
	}
	if StepAllowed(g, from, to) {
		t.Fatalf("diagonal allowed with one corner still blocked")
	}
	if !g.ApplyDamage(0, 1, 100) {
		t.Fatalf("second dig should deplete")
	}
	if !StepAllowed(g, from, to) {
		t.Fatalf("diagonal rejected with both corners clear")
	}
	// Orthogonal steps never consult corners; they were legal into the
	// diggable cell all along and stay legal after the dig.
	if !StepAllowed(g, from, grid.Coord{X: 1, Y: 0}) {
		t.Fatalf("orthogonal step rejected")
	}
}

func TestStepAllowed_DiagonalNeedsEmptyEndpoints(t *testing.T) {
	// A diagonal with clear corners is still rejected when either endpoint
	// holds diggable rock; the rule demands Empty, not merely passable.
	g := buildGrid(t, []string{
		"d.",
		".d",
	})
	if StepAllowed(g, grid.Coord{X: 0, Y: 0}, grid.Coord{X: 1, Y: 1}) {
		t.Fatalf("diagonal allowed into a diggable cell")
	}
	g = buildGrid(t, []string{
		"d.",
		"..",
	})
	if StepAllowed(g, grid.Coord{X: 0, Y: 0}, grid.Coord{X: 1, Y: 1}) {
		t.Fatalf("diagonal allowed out of a diggable cell")
	}
}
