package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	// Observer clients receive cell events but own no agent.
	Observer bool `json:"observer,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	AgentID         string      `json:"agent_id,omitempty"`
	Spawn           *[2]int     `json:"spawn,omitempty"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	CellSize   float64 `json:"cell_size"`
	TickRateHz int     `json:"tick_rate_hz"`
	Seed       int64   `json:"seed"`
}

// MUTATE (client -> server): authoritative terrain mutation requests.
// Out-of-range coordinates are ignored server-side, never rejected with an
// error, since they may come from stale client predictions.
type MutateMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Ops             []MutateOp `json:"ops"`
}

type MutateOp struct {
	Op string `json:"op"`

	// DAMAGE
	Pos    *[2]int `json:"pos,omitempty"`
	Amount int     `json:"amount,omitempty"`

	// INSTALL_SPAWNERS
	Coords [][2]int `json:"coords,omitempty"`

	// APPLY_WEIGHTS
	Weights []WeightEntry `json:"weights,omitempty"`
}

type WeightEntry struct {
	Pos    [2]int `json:"pos"`
	Weight uint8  `json:"weight"`
}

// MOVE (client -> server): step the caller's agent to an adjacent cell.
type MoveMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	To              [2]int `json:"to"`
}

// PATH (client -> server)
type PathMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	RequestID       string   `json:"request_id"`
	Start           [2]int   `json:"start"`
	Goal            [2]int   `json:"goal"`
	DestinationKey  *DestKey `json:"destination_key,omitempty"`
	// Optional custom traversable cell-type set; forces the stateless solver.
	Traversable []string `json:"traversable,omitempty"`
}

type DestKey struct {
	Kind string `json:"kind"` // "FIXED" | "AGENT"
	ID   string `json:"id"`
}

// PATH_RESULT (server -> client)
type PathResultMsg struct {
	Type      string   `json:"type"`
	RequestID string   `json:"request_id"`
	OK        bool     `json:"ok"`
	Reason    string   `json:"reason,omitempty"`
	Cells     [][2]int `json:"cells,omitempty"`
}

// Path failure reasons.
const (
	ReasonBadRequest  = "BAD_REQUEST"
	ReasonUnreachable = "UNREACHABLE"
	ReasonNoPath      = "NO_PATH"
)

// GRID (server -> client): full-grid sync sent right after WELCOME so late
// joiners start from current terrain instead of replaying missed events.
// Cells is a run-length payload, row-major from (0,0).
type GridMsg struct {
	Type   string `json:"type"`
	Tick   uint64 `json:"tick"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cells  string `json:"cells"`
}

// CELLS (server -> client): the changed-cell event emitted after every
// mutation, one entry per cell: everything a replication layer needs to
// diff and re-render without seeing internal distance fields.
type CellsMsg struct {
	Type  string      `json:"type"`
	Tick  uint64      `json:"tick"`
	Cells []CellState `json:"cells"`
}

type CellState struct {
	Pos      [2]int `json:"pos"`
	CellType string `json:"cell_type"`
	HP       int    `json:"hp"`
	Weight   uint8  `json:"weight,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

const (
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrInternal        = "E_INTERNAL"
)
