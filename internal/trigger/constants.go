// Package trigger implements the trigger condition engine: clause values,
// clause chains and their editor, the expression compiler, trigger records
// with whole-record validation, and the host grouping projection.
package trigger

import (
	"fmt"
	"strconv"
	"strings"
)

// Function is the aggregation applied to an item's samples.
type Function string

// Aggregation functions understood by the evaluator.
const (
	FunctionAvg  Function = "avg"
	FunctionMin  Function = "min"
	FunctionMax  Function = "max"
	FunctionLast Function = "last"
)

// Valid reports whether f is a known aggregation function.
func (f Function) Valid() bool {
	switch f {
	case FunctionAvg, FunctionMin, FunctionMax, FunctionLast:
		return true
	default:
		return false
	}
}

// Window is the evaluation window of an aggregation, written as "<minutes>m".
// The zero value means no window.
type Window string

// Supported windows, shortest first.
const (
	WindowNone Window = ""
	Window15m  Window = "15m"
	Window30m  Window = "30m"
	Window60m  Window = "60m"
)

// DefaultWindow is assigned to freshly added clauses.
const DefaultWindow = Window15m

// supportedWindows lists the windows offered by the editor.
var supportedWindows = []Window{Window15m, Window30m, Window60m}

// IsSupported reports whether w is one of the editor's windows.
func (w Window) IsSupported() bool {
	for _, s := range supportedWindows {
		if w == s {
			return true
		}
	}
	return false
}

// Minutes returns the window length in minutes, or 0 for no window or a
// malformed literal.
func (w Window) Minutes() int {
	s := strings.TrimSuffix(string(w), "m")
	if s == "" || s == string(w) {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// WindowFromMinutes converts a stored minute count back to a Window.
// Non-positive counts mean no window.
func WindowFromMinutes(minutes int) Window {
	if minutes <= 0 {
		return WindowNone
	}
	return Window(fmt.Sprintf("%dm", minutes))
}

// ParseWindow accepts "15m", "15" or "" and returns the matching Window.
func ParseWindow(s string) (Window, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return WindowNone, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return WindowFromMinutes(n), nil
	}
	w := Window(s)
	if w.Minutes() == 0 {
		return WindowNone, fmt.Errorf("invalid window %q", s)
	}
	return w, nil
}

// Operation compares the aggregated value against the threshold.
type Operation string

// Comparison operations.
const (
	OperationGreater        Operation = ">"
	OperationGreaterOrEqual Operation = ">="
	OperationEqual          Operation = "="
	OperationLess           Operation = "<"
	OperationLessOrEqual    Operation = "<="
)

// Valid reports whether o is a known comparison.
func (o Operation) Valid() bool {
	switch o {
	case OperationGreater, OperationGreaterOrEqual, OperationEqual, OperationLess, OperationLessOrEqual:
		return true
	default:
		return false
	}
}

// Joiner links a clause to the next one in its chain.
type Joiner string

// Boolean joiners. Chains are evaluated strictly left to right.
const (
	JoinerAnd Joiner = "and"
	JoinerOr  Joiner = "or"
)

// Valid reports whether j is a known joiner. The empty joiner is valid and
// means JoinerAnd.
func (j Joiner) Valid() bool {
	return j == "" || j == JoinerAnd || j == JoinerOr
}

// OrDefault returns j, or JoinerAnd when j is unset.
func (j Joiner) OrDefault() Joiner {
	if j == "" {
		return JoinerAnd
	}
	return j
}

// OKEventPolicy selects how an alert raised by a trigger is resolved.
type OKEventPolicy string

// OK event generation policies, using the values stored by the console.
const (
	OKEventExpression         OKEventPolicy = "expression"
	OKEventRecoveryExpression OKEventPolicy = "recovery expression"
	OKEventNone               OKEventPolicy = "none"
)

// Valid reports whether p is a known policy.
func (p OKEventPolicy) Valid() bool {
	switch p {
	case OKEventExpression, OKEventRecoveryExpression, OKEventNone:
		return true
	default:
		return false
	}
}

// ParseOKEventPolicy normalizes a stored policy value. It accepts the
// camel-case spelling "recoveryExpression" as well.
func ParseOKEventPolicy(s string) (OKEventPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expression":
		return OKEventExpression, nil
	case "recovery expression", "recoveryexpression", "recovery_expression":
		return OKEventRecoveryExpression, nil
	case "none":
		return OKEventNone, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown ok event policy %q", s)
	}
}
