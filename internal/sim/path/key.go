package path

import "fmt"

type keyKind uint8

const (
	kindNone keyKind = iota
	kindFixed
	kindAgent
)

// Key identifies one destination record. Fixed world locations and live
// per-agent goals live in separate namespaces: FixedKey("x") never equals
// AgentKey("x"). The zero Key means "no destination preference".
type Key struct {
	kind keyKind
	id   string
}

// FixedKey names a stable fixed-point destination.
func FixedKey(id string) Key { return Key{kind: kindFixed, id: id} }

// AgentKey names the live destination tracking one agent.
func AgentKey(identity string) Key { return Key{kind: kindAgent, id: identity} }

func (k Key) IsZero() bool { return k.kind == kindNone }

func (k Key) String() string {
	switch k.kind {
	case kindFixed:
		return fmt.Sprintf("fixed:%s", k.id)
	case kindAgent:
		return fmt.Sprintf("agent:%s", k.id)
	default:
		return "none"
	}
}
