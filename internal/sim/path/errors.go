package path

import "errors"

// Every failure mode degrades to "no path" or "request ignored"; none of
// these is fatal and none leaves grid or field state inconsistent.
var (
	// ErrOutOfBounds marks a malformed request (coordinate outside the grid).
	ErrOutOfBounds = errors.New("path: coordinate out of bounds")
	// ErrNoRecord means no flow field is registered for the destination key.
	ErrNoRecord = errors.New("path: no record for destination key")
	// ErrUnreachable means the start cell has no route to the destination.
	ErrUnreachable = errors.New("path: start unreachable from destination")
	// ErrNoPath is the stateless solver's no-route failure.
	ErrNoPath = errors.New("path: no path between start and goal")
	// ErrInconsistent means greedy descent could not make progress against a
	// stored field; callers treat it as recoverable and fall back.
	ErrInconsistent = errors.New("path: field descent made no progress")
)
