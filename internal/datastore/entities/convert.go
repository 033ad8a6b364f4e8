package entities

import (
	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

// PartsFromChain converts the complete clauses of a chain to wire parts.
// Windows are sent as minute counts.
func PartsFromChain(c trigger.Chain) []Part {
	complete := c.Complete()
	parts := make([]Part, 0, len(complete))
	for _, cl := range complete {
		parts = append(parts, Part{
			Item:           cl.Item,
			Operation:      string(cl.Operation),
			Value:          cl.Threshold,
			Operator:       string(cl.Joiner),
			FunctionOfItem: string(cl.Function),
			Duration:       PartDuration(cl.Window.Minutes()),
		})
	}
	return parts
}

// ChainFromParts converts stored parts back to a chain. Values are taken
// as stored; invalid ones are reported by validation at the next commit.
func ChainFromParts(parts []Part) trigger.Chain {
	if len(parts) == 0 {
		return nil
	}
	c := make(trigger.Chain, 0, len(parts))
	for _, p := range parts {
		c = append(c, trigger.Clause{
			Item:      p.Item,
			Function:  trigger.Function(p.FunctionOfItem),
			Window:    trigger.WindowFromMinutes(int(p.Duration)),
			Operation: trigger.Operation(p.Operation),
			Threshold: p.Value,
			Joiner:    trigger.Joiner(p.Operator),
		})
	}
	return c
}

// NewTriggerWrite builds a write body from a domain trigger. The compiled
// expressions are taken from t, which callers normalize beforehand.
func NewTriggerWrite(t trigger.Trigger, actor trigger.Actor) TriggerWrite {
	w := TriggerWrite{
		HostID:             t.HostID,
		TriggerName:        t.Name,
		Severity:           string(t.Severity),
		Expression:         t.Expression,
		OKEventGeneration:  string(t.OKEventPolicy),
		RecoveryExpression: t.RecoveryExpression,
		Enabled:            t.Enabled,
		ExpressionPart:     PartsFromChain(t.Primary),
		UserRole:           actor.Role,
		UserName:           actor.Name,
	}
	if t.OKEventPolicy == trigger.OKEventRecoveryExpression {
		w.ExpressionRecoveryPart = PartsFromChain(t.Recovery)
	} else {
		w.ExpressionRecoveryPart = []Part{}
	}
	return w
}

// Domain returns the write body as a domain trigger with its expressions
// recompiled from the parts. Unknown severities and policies are kept
// verbatim so validation can report them.
func (w TriggerWrite) Domain() trigger.Trigger {
	t := trigger.Trigger{
		HostID:   w.HostID,
		Name:     w.TriggerName,
		Enabled:  w.Enabled,
		Primary:  ChainFromParts(w.ExpressionPart),
		Recovery: ChainFromParts(w.ExpressionRecoveryPart),
	}
	t.Severity, t.LegacySeverity = parseSeverity(w.Severity)
	t.OKEventPolicy = parsePolicy(w.OKEventGeneration)
	t.Recompile()
	return t
}

// FromDomain builds a storable entity from a domain trigger.
func FromDomain(t trigger.Trigger) Trigger {
	e := Trigger{
		ID:                 t.ID,
		HostID:             t.HostID,
		Name:               t.Name,
		Severity:           string(t.Severity),
		Expression:         t.Expression,
		OKEventGeneration:  string(t.OKEventPolicy),
		RecoveryExpression: t.RecoveryExpression,
		Enabled:            t.Enabled,
	}
	for i, p := range PartsFromChain(t.Primary) {
		e.ExpressionParts = append(e.ExpressionParts, ExpressionPart{TriggerID: t.ID, SortOrder: i, Part: p})
	}
	if t.OKEventPolicy == trigger.OKEventRecoveryExpression {
		for i, p := range PartsFromChain(t.Recovery) {
			e.RecoveryParts = append(e.RecoveryParts, RecoveryPart{TriggerID: t.ID, SortOrder: i, Part: p})
		}
	}
	return e
}

// Domain converts a stored or received trigger to the domain record.
// hostname is attached when known from a grouped listing.
func (e Trigger) Domain(hostname string) trigger.Trigger {
	t := trigger.Trigger{
		ID:                 e.ID,
		Name:               e.Name,
		HostID:             e.HostID,
		Hostname:           hostname,
		Enabled:            e.Enabled,
		Expression:         e.Expression,
		RecoveryExpression: e.RecoveryExpression,
		Primary:            ChainFromParts(e.primaryParts()),
		Recovery:           ChainFromParts(e.recoveryParts()),
	}
	t.Severity, t.LegacySeverity = parseSeverity(e.Severity)
	t.OKEventPolicy = parsePolicy(e.OKEventGeneration)
	return t
}

func (e Trigger) primaryParts() []Part {
	out := make([]Part, len(e.ExpressionParts))
	for i := range e.ExpressionParts {
		out[i] = e.ExpressionParts[i].Part
	}
	return out
}

func (e Trigger) recoveryParts() []Part {
	out := make([]Part, len(e.RecoveryParts))
	for i := range e.RecoveryParts {
		out[i] = e.RecoveryParts[i].Part
	}
	return out
}

// ItemDomain converts a stored item for the clause item picker.
func (i Item) Domain() trigger.Item {
	return trigger.Item{
		ID:       i.ID,
		Name:     i.Name,
		OID:      i.OID,
		Type:     i.Type,
		Unit:     i.Unit,
		Interval: i.Interval,
	}
}

func parseSeverity(raw string) (sev trigger.Severity, legacy string) {
	parsed, isLegacy, err := trigger.ParseSeverity(raw)
	if err != nil {
		return trigger.Severity(raw), ""
	}
	if isLegacy {
		return parsed, raw
	}
	return parsed, ""
}

func parsePolicy(raw string) trigger.OKEventPolicy {
	p, err := trigger.ParseOKEventPolicy(raw)
	if err != nil {
		return trigger.OKEventPolicy(raw)
	}
	return p
}
