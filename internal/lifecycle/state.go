package lifecycle

import "fmt"

// State is the position of a draft in the commit state machine.
type State int

const (
	// StateDraft is an editable record, new or loaded from storage.
	StateDraft State = iota
	// StateValidated is a record that passed validation and is being sent.
	StateValidated
	// StatePersisted is a record acknowledged by the store.
	StatePersisted
	// StateDeleted is terminal.
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateValidated:
		return "validated"
	case StatePersisted:
		return "persisted"
	case StateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ChainKind selects one of a trigger's two chains.
type ChainKind string

const (
	ChainPrimary  ChainKind = "primary"
	ChainRecovery ChainKind = "recovery"
)

// ParseChainKind accepts "primary"/"expression" and "recovery".
func ParseChainKind(s string) (ChainKind, error) {
	switch s {
	case "primary", "expression", "":
		return ChainPrimary, nil
	case "recovery", "recovery_expression":
		return ChainRecovery, nil
	default:
		return "", fmt.Errorf("unknown chain %q", s)
	}
}
