package lifecycle

import (
	"github.com/google/uuid"

	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

// Draft is a trigger record being edited. Every mutation recompiles the
// derived expressions, and mutating a persisted draft moves it back to
// StateDraft until the next commit.
//
// A Draft belongs to a single editing actor and is not safe for concurrent
// use. Commits of the same draft are serialized by the Session.
type Draft struct {
	key    string
	record trigger.Trigger
	state  State
}

func newDraft(record trigger.Trigger, state State) *Draft {
	return &Draft{
		key:    uuid.NewString(),
		record: record,
		state:  state,
	}
}

// Key identifies the draft while it has no trigger ID.
func (d *Draft) Key() string { return d.key }

// State returns the current state.
func (d *Draft) State() State { return d.state }

// IsNew reports whether the draft has never been persisted.
func (d *Draft) IsNew() bool { return d.record.IsNew() }

// Record returns a copy of the edited record.
func (d *Draft) Record() trigger.Trigger { return d.record.Clone() }

// Chain returns a copy of the selected chain.
func (d *Draft) Chain(kind ChainKind) trigger.Chain {
	return d.chain(kind).Clone()
}

// Validate runs whole-record validation without changing state.
func (d *Draft) Validate() trigger.ValidationReport {
	return trigger.Validate(&d.record)
}

func (d *Draft) SetName(name string) {
	d.record.Name = name
	d.touch()
}

func (d *Draft) SetSeverity(sev trigger.Severity) {
	d.record.Severity = sev
	d.record.LegacySeverity = ""
	d.touch()
}

func (d *Draft) SetOKEventPolicy(p trigger.OKEventPolicy) {
	d.record.OKEventPolicy = p
	d.touch()
}

// SetEnabled sets the enabled flag sent with the next commit. Use
// Session.ToggleEnabled to flip a persisted trigger without a full commit.
func (d *Draft) SetEnabled(enabled bool) {
	d.record.Enabled = enabled
	d.touch()
}

// AddClause appends a blank clause to the chain and returns its ID.
func (d *Draft) AddClause(kind ChainKind) string {
	chain := trigger.AddClause(d.chain(kind))
	d.setChain(kind, chain)
	return chain[len(chain)-1].ID
}

// RemoveClause removes a clause by ID. Removing the last remaining clause
// or an unknown ID changes nothing.
func (d *Draft) RemoveClause(kind ChainKind, id string) {
	d.setChain(kind, trigger.RemoveClause(d.chain(kind), id))
}

// UpdateClause sets one field of one clause.
func (d *Draft) UpdateClause(kind ChainKind, id string, field trigger.ClauseField, value string) error {
	chain, err := trigger.UpdateClause(d.chain(kind), id, field, value)
	if err != nil {
		return err
	}
	d.setChain(kind, chain)
	return nil
}

func (d *Draft) chain(kind ChainKind) trigger.Chain {
	if kind == ChainRecovery {
		return d.record.Recovery
	}
	return d.record.Primary
}

func (d *Draft) setChain(kind ChainKind, c trigger.Chain) {
	if kind == ChainRecovery {
		d.record.Recovery = c
	} else {
		d.record.Primary = c
	}
	d.touch()
}

func (d *Draft) touch() {
	d.record.Recompile()
	if d.state == StatePersisted || d.state == StateValidated {
		d.state = StateDraft
	}
}
