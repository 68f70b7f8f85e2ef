package world

import (
	"digcraft.gg/internal/protocol"
	"digcraft.gg/internal/sim/grid"
)

// WorldConfig is the operational configuration for one world instance.
// It is immutable after NewWorld.
type WorldConfig struct {
	ID         string
	TickRateHz int

	Gen grid.GenConfig

	// Fixed destinations registered at startup. Their flow fields live for
	// the lifetime of the world.
	FixedDestinations []FixedDestination
}

type FixedDestination struct {
	ID string
	X  int
	Y  int
}

// JoinRequest enters through the join channel and is applied at the next
// tick boundary. Out is the session's outbound queue; Resp receives the
// WELCOME once the agent exists.
type JoinRequest struct {
	Name     string
	Observer bool
	Out      chan []byte
	Resp     chan JoinResponse
}

type JoinResponse struct {
	Welcome  protocol.WelcomeMsg
	GridSync *protocol.GridMsg
}

// ActionEnvelope is one client action tagged with the session's agent
// identity. Exactly one of Mutate and Move is set.
type ActionEnvelope struct {
	AgentID string
	Mutate  *protocol.MutateMsg
	Move    *protocol.MoveMsg
}

type RecordedJoin struct {
	AgentID  string `json:"agent_id"`
	Name     string `json:"name"`
	Observer bool   `json:"observer,omitempty"`
}

// TickLogEntry records everything needed to re-execute one tick: the inputs
// in their applied order plus the post-tick state digest for verification.
type TickLogEntry struct {
	Tick    uint64           `json:"tick"`
	Joins   []RecordedJoin   `json:"joins,omitempty"`
	Leaves  []string         `json:"leaves,omitempty"`
	Actions []RecordedAction `json:"actions,omitempty"`
	Digest  string           `json:"digest"`
}

type RecordedAction struct {
	AgentID string              `json:"agent_id"`
	Mutate  *protocol.MutateMsg `json:"mutate,omitempty"`
	Move    *protocol.MoveMsg   `json:"move,omitempty"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// TickIndexer receives per-tick bookkeeping for the queryable index. Must
// not block; implementations hand off to their own goroutine.
type TickIndexer interface {
	IndexTick(tick uint64, actions, cellsChanged int, digest string)
}
