package trigger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Clause is one condition term: an aggregation over an item, an optional
// window, a comparison and a threshold, plus the joiner to the next clause.
type Clause struct {
	// ID is a stable identifier assigned at creation. Editor operations
	// address clauses by ID; position is only used for ordering.
	ID        string    `json:"id"`
	Item      string    `json:"item" validate:"required"`
	Function  Function  `json:"function" validate:"required,clause_function"`
	Window    Window    `json:"window,omitempty"`
	Operation Operation `json:"operation" validate:"required,clause_operation"`
	Threshold string    `json:"threshold" validate:"required"`
	Joiner    Joiner    `json:"joiner,omitempty"`
}

// NewClause returns a blank clause with a fresh ID and the default window.
func NewClause() Clause {
	return Clause{
		ID:     uuid.NewString(),
		Window: DefaultWindow,
	}
}

// IsComplete reports whether the clause has every field needed to compile.
// The window is optional.
func (c Clause) IsComplete() bool {
	return c.Item != "" && c.Function != "" && c.Operation != "" && c.Threshold != ""
}

// IsBlank reports whether none of the required fields have been filled in.
func (c Clause) IsBlank() bool {
	return c.Item == "" && c.Function == "" && c.Operation == "" && c.Threshold == ""
}

// Term renders the clause without its joiner, e.g. "avg(cpu_load,15m) > 90".
func (c Clause) Term() string {
	var b strings.Builder
	b.WriteString(string(c.Function))
	b.WriteByte('(')
	b.WriteString(c.Item)
	if c.Window != WindowNone {
		b.WriteByte(',')
		b.WriteString(string(c.Window))
	}
	b.WriteString(") ")
	b.WriteString(string(c.Operation))
	b.WriteByte(' ')
	b.WriteString(c.Threshold)
	return b.String()
}

// ClauseField names an editable clause field.
type ClauseField string

const (
	FieldItem      ClauseField = "item"
	FieldFunction  ClauseField = "function"
	FieldWindow    ClauseField = "window"
	FieldOperation ClauseField = "operation"
	FieldThreshold ClauseField = "threshold"
	FieldJoiner    ClauseField = "joiner"
)

// ParseClauseField accepts the field names above and the console's wire
// names ("functionofItem", "duration", "value", "operator").
func ParseClauseField(s string) (ClauseField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "item":
		return FieldItem, nil
	case "function", "functionofitem", "fn":
		return FieldFunction, nil
	case "window", "duration":
		return FieldWindow, nil
	case "operation", "op":
		return FieldOperation, nil
	case "threshold", "value":
		return FieldThreshold, nil
	case "joiner", "operator", "join":
		return FieldJoiner, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// with returns a copy of c with field set to value. Enumerated fields accept
// the empty string, which clears them.
func (c Clause) with(field ClauseField, value string) (Clause, error) {
	switch field {
	case FieldItem:
		c.Item = value
	case FieldThreshold:
		c.Threshold = value
	case FieldFunction:
		f := Function(value)
		if f != "" && !f.Valid() {
			return c, fmt.Errorf("%w: function %q", ErrInvalidValue, value)
		}
		c.Function = f
	case FieldOperation:
		o := Operation(value)
		if o != "" && !o.Valid() {
			return c, fmt.Errorf("%w: operation %q", ErrInvalidValue, value)
		}
		c.Operation = o
	case FieldWindow:
		w, err := ParseWindow(value)
		if err != nil || (w != WindowNone && !w.IsSupported()) {
			return c, fmt.Errorf("%w: window %q", ErrInvalidValue, value)
		}
		c.Window = w
	case FieldJoiner:
		j := Joiner(value)
		if !j.Valid() {
			return c, fmt.Errorf("%w: joiner %q", ErrInvalidValue, value)
		}
		c.Joiner = j
	default:
		return c, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return c, nil
}
