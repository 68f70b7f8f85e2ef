package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello      = "HELLO"
	TypeWelcome    = "WELCOME"
	TypeMutate     = "MUTATE"
	TypeMove       = "MOVE"
	TypePath       = "PATH"
	TypePathResult = "PATH_RESULT"
	TypeGridSync   = "GRID"
	TypeCells      = "CELLS"
	TypeError      = "ERROR"
)

// Mutation op kinds carried by a MUTATE message.
const (
	OpDamage          = "DAMAGE"
	OpInstallSpawners = "INSTALL_SPAWNERS"
	OpApplyWeights    = "APPLY_WEIGHTS"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
