package trigger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	clauseValidator     *validator.Validate
	clauseValidatorOnce sync.Once
)

func getClauseValidator() *validator.Validate {
	clauseValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Registration only fails for empty tags or nil funcs.
		_ = v.RegisterValidation("clause_function", func(fl validator.FieldLevel) bool {
			return Function(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("clause_operation", func(fl validator.FieldLevel) bool {
			return Operation(fl.Field().String()).Valid()
		})
		clauseValidator = v
	})
	return clauseValidator
}

// ClauseErrors flags the fields of a clause that are missing or invalid.
// A true flag means the field failed. The window is optional and never fails.
type ClauseErrors struct {
	Item      bool `json:"item"`
	Operation bool `json:"operation"`
	Threshold bool `json:"threshold"`
	Function  bool `json:"functionofItem"`
}

// OK reports whether no field failed.
func (e ClauseErrors) OK() bool {
	return !e.Item && !e.Operation && !e.Threshold && !e.Function
}

// ValidateClause checks a single clause in isolation.
func ValidateClause(c Clause) ClauseErrors {
	var out ClauseErrors
	err := getClauseValidator().Struct(c)
	if err == nil {
		return out
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// Only returned for invalid input types, which Clause never is.
		return ClauseErrors{Item: true, Operation: true, Threshold: true, Function: true}
	}
	for _, fe := range verrs {
		switch fe.StructField() {
		case "Item":
			out.Item = true
		case "Operation":
			out.Operation = true
		case "Threshold":
			out.Threshold = true
		case "Function":
			out.Function = true
		}
	}
	return out
}

// ValidationReport is the per-field outcome of whole-record validation.
// Field names follow the console form.
type ValidationReport struct {
	Name          bool `json:"trigger_name"`
	Severity      bool `json:"severity"`
	OKEventPolicy bool `json:"ok_eventGen"`
	// Expression is set when the primary chain has no complete clause.
	Expression bool `json:"expression"`
	// RecoveryExpression is set when the recovery policy is selected and
	// the recovery chain has no complete clause.
	RecoveryExpression bool `json:"recoveryExpression"`
	// Clauses holds the flags of partially filled or invalid clauses,
	// keyed by clause ID. Fully blank clauses are not reported.
	Clauses map[string]ClauseErrors `json:"clauses,omitempty"`
}

// OK reports whether the record passed.
func (r ValidationReport) OK() bool {
	return !r.Name && !r.Severity && !r.OKEventPolicy && !r.Expression &&
		!r.RecoveryExpression && len(r.Clauses) == 0
}

// Err returns a *ValidationError for a failed report, or nil.
func (r ValidationReport) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Report: r}
}

// ValidationError carries a failed ValidationReport.
type ValidationError struct {
	Report ValidationReport
}

func (e *ValidationError) Error() string {
	var fields []string
	if e.Report.Name {
		fields = append(fields, "trigger_name")
	}
	if e.Report.Severity {
		fields = append(fields, "severity")
	}
	if e.Report.OKEventPolicy {
		fields = append(fields, "ok_event_generation")
	}
	if e.Report.Expression {
		fields = append(fields, "expression")
	}
	if e.Report.RecoveryExpression {
		fields = append(fields, "recovery_expression")
	}
	if n := len(e.Report.Clauses); n > 0 {
		fields = append(fields, fmt.Sprintf("%d clause(s)", n))
	}
	return "trigger validation failed: " + strings.Join(fields, ", ")
}

// Validate runs whole-record validation. It never touches the network.
func Validate(t *Trigger) ValidationReport {
	r := ValidationReport{
		Name:     strings.TrimSpace(t.Name) == "",
		Severity: !t.Severity.Valid(),
		// An unset policy defaults to the primary expression.
		OKEventPolicy: t.OKEventPolicy != "" && !t.OKEventPolicy.Valid(),
		Expression:    !t.Primary.HasComplete(),
	}
	collectClauseErrors(&r, t.Primary)
	if t.OKEventPolicy == OKEventRecoveryExpression {
		r.RecoveryExpression = !t.Recovery.HasComplete()
		collectClauseErrors(&r, t.Recovery)
	}
	return r
}

func collectClauseErrors(r *ValidationReport, chain Chain) {
	for _, c := range chain {
		if c.IsBlank() {
			continue
		}
		if ce := ValidateClause(c); !ce.OK() {
			if r.Clauses == nil {
				r.Clauses = make(map[string]ClauseErrors)
			}
			r.Clauses[c.ID] = ce
		}
	}
}
