package trigger

// Trigger is a monitoring alert rule. The structured chains are the source
// of truth; Expression and RecoveryExpression are derived from them by
// Recompile and are never edited by hand.
type Trigger struct {
	ID            string        `json:"id,omitempty"`
	Name          string        `json:"name"`
	Severity      Severity      `json:"severity"`
	HostID        string        `json:"host_id"`
	Hostname      string        `json:"hostname,omitempty"`
	Primary       Chain         `json:"primary"`
	OKEventPolicy OKEventPolicy `json:"ok_event_generation"`
	Recovery      Chain         `json:"recovery,omitempty"`
	Enabled       bool          `json:"enabled"`

	Expression         string `json:"expression"`
	RecoveryExpression string `json:"recovery_expression"`

	// LegacySeverity keeps the stored severity when it came from the
	// retired vocabulary and was mapped on read.
	LegacySeverity string `json:"legacy_severity,omitempty"`
}

// NewDraftTrigger returns an unsaved trigger for hostID with one blank
// clause in each chain.
func NewDraftTrigger(hostID string) Trigger {
	t := Trigger{
		HostID:        hostID,
		Primary:       NewChain(),
		OKEventPolicy: OKEventExpression,
		Recovery:      NewChain(),
		Enabled:       true,
	}
	t.Recompile()
	return t
}

// IsNew reports whether the trigger has never been persisted.
func (t *Trigger) IsNew() bool {
	return t.ID == ""
}

// Recompile regenerates the derived expressions from the chains. The
// recovery expression is empty unless the recovery policy is selected.
func (t *Trigger) Recompile() {
	t.Expression = Compile(t.Primary)
	if t.OKEventPolicy == OKEventRecoveryExpression {
		t.RecoveryExpression = Compile(t.Recovery)
	} else {
		t.RecoveryExpression = ""
	}
}

// Clone returns a deep copy of t.
func (t Trigger) Clone() Trigger {
	t.Primary = t.Primary.Clone()
	t.Recovery = t.Recovery.Clone()
	return t
}

// Normalized returns the form of t that is sent to storage: blank clauses
// dropped, the recovery chain cleared unless the recovery policy is
// selected, an unset policy defaulted, and expressions recompiled.
func (t Trigger) Normalized() Trigger {
	out := t.Clone()
	if out.OKEventPolicy == "" {
		out.OKEventPolicy = OKEventExpression
	}
	out.Primary = out.Primary.WithoutBlank()
	if out.OKEventPolicy == OKEventRecoveryExpression {
		out.Recovery = out.Recovery.WithoutBlank()
	} else {
		out.Recovery = nil
	}
	out.Recompile()
	return out
}

// ForEditing returns a copy of t with both chains present and every clause
// addressable by ID, ready to be loaded into an editor.
func (t Trigger) ForEditing() Trigger {
	out := t.Clone()
	out.Primary = out.Primary.EnsureIDs()
	out.Recovery = out.Recovery.EnsureIDs()
	for i := range out.Primary {
		if out.Primary[i].Joiner == "" {
			out.Primary[i].Joiner = JoinerAnd
		}
	}
	for i := range out.Recovery {
		if out.Recovery[i].Joiner == "" {
			out.Recovery[i].Joiner = JoinerAnd
		}
	}
	out.Recompile()
	return out
}

// Item is a monitored item offered by the clause item selector.
type Item struct {
	ID       string `json:"_id"`
	Name     string `json:"item_name"`
	OID      string `json:"oid,omitempty"`
	Type     string `json:"type,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Interval int    `json:"interval,omitempty"`
}

// Actor identifies who performs a write, for audit fields.
type Actor struct {
	Name string
	Role string
}
