package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateClause(t *testing.T) {
	tests := []struct {
		name   string
		clause Clause
		want   ClauseErrors
	}{
		{
			name:   "complete clause passes",
			clause: clause(FunctionAvg, "cpu_load", Window15m, OperationGreater, "90", ""),
			want:   ClauseErrors{},
		},
		{
			name:   "window is optional",
			clause: clause(FunctionAvg, "cpu_load", WindowNone, OperationGreater, "90", ""),
			want:   ClauseErrors{},
		},
		{
			name:   "blank clause flags every required field",
			clause: NewClause(),
			want:   ClauseErrors{Item: true, Operation: true, Threshold: true, Function: true},
		},
		{
			name:   "missing threshold",
			clause: clause(FunctionAvg, "cpu_load", WindowNone, OperationGreater, "", ""),
			want:   ClauseErrors{Threshold: true},
		},
		{
			name:   "unknown function",
			clause: clause(Function("median"), "cpu_load", WindowNone, OperationGreater, "1", ""),
			want:   ClauseErrors{Function: true},
		},
		{
			name:   "unknown operation",
			clause: clause(FunctionMax, "cpu_load", WindowNone, Operation("!="), "1", ""),
			want:   ClauseErrors{Operation: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateClause(tt.clause)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == ClauseErrors{}, got.OK())
		})
	}
}

func validTrigger() Trigger {
	t := NewDraftTrigger("host-a")
	t.Name = "High CPU"
	t.Severity = SeverityHigh
	t.Primary = Chain{clause(FunctionAvg, "cpu_load", Window15m, OperationGreater, "90", "")}
	return t
}

func TestValidate_ValidRecord(t *testing.T) {
	tr := validTrigger()
	report := Validate(&tr)
	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
}

func TestValidate_RecordFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tr *Trigger)
		check  func(t *testing.T, r ValidationReport)
	}{
		{"empty name", func(tr *Trigger) { tr.Name = "  " }, func(t *testing.T, r ValidationReport) { assert.True(t, r.Name) }},
		{"missing severity", func(tr *Trigger) { tr.Severity = "" }, func(t *testing.T, r ValidationReport) { assert.True(t, r.Severity) }},
		{"legacy severity string", func(tr *Trigger) { tr.Severity = "critical" }, func(t *testing.T, r ValidationReport) { assert.True(t, r.Severity) }},
		{"bad policy", func(tr *Trigger) { tr.OKEventPolicy = "sometimes" }, func(t *testing.T, r ValidationReport) { assert.True(t, r.OKEventPolicy) }},
		{"no complete primary clause", func(tr *Trigger) { tr.Primary = NewChain() }, func(t *testing.T, r ValidationReport) {
			assert.True(t, r.Expression)
			assert.Empty(t, r.Clauses, "blank clauses are not reported")
		}},
		{"recovery required but empty", func(tr *Trigger) { tr.OKEventPolicy = OKEventRecoveryExpression }, func(t *testing.T, r ValidationReport) {
			assert.True(t, r.RecoveryExpression)
		}},
		{"partially filled clause", func(tr *Trigger) {
			partial := NewClause()
			partial.Item = "mem_used"
			tr.Primary = append(tr.Primary, partial)
		}, func(t *testing.T, r ValidationReport) {
			assert.False(t, r.Expression)
			require.Len(t, r.Clauses, 1)
			for _, ce := range r.Clauses {
				assert.Equal(t, ClauseErrors{Operation: true, Threshold: true, Function: true}, ce)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := validTrigger()
			tt.mutate(&tr)
			r := Validate(&tr)
			assert.False(t, r.OK())
			tt.check(t, r)

			var verr *ValidationError
			require.ErrorAs(t, r.Err(), &verr)
			assert.Equal(t, r, verr.Report)
		})
	}
}

func TestValidate_RecoveryIgnoredUnlessSelected(t *testing.T) {
	tr := validTrigger()
	partial := NewClause()
	partial.Item = "x"
	tr.Recovery = Chain{partial}
	tr.OKEventPolicy = OKEventNone

	assert.True(t, Validate(&tr).OK())

	tr.OKEventPolicy = OKEventRecoveryExpression
	r := Validate(&tr)
	assert.True(t, r.RecoveryExpression)
	assert.Contains(t, r.Clauses, partial.ID)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Report: ValidationReport{Name: true, Expression: true}}
	assert.Equal(t, "trigger validation failed: trigger_name, expression", err.Error())
}
