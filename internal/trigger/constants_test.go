package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Minutes(t *testing.T) {
	assert.Equal(t, 15, Window15m.Minutes())
	assert.Equal(t, 60, Window60m.Minutes())
	assert.Equal(t, 0, WindowNone.Minutes())
	assert.Equal(t, 0, Window("15").Minutes())
	assert.Equal(t, 0, Window("xm").Minutes())
}

func TestWindowFromMinutes(t *testing.T) {
	assert.Equal(t, Window30m, WindowFromMinutes(30))
	assert.Equal(t, WindowNone, WindowFromMinutes(0))
	assert.Equal(t, WindowNone, WindowFromMinutes(-5))
	for _, w := range supportedWindows {
		assert.Equal(t, w, WindowFromMinutes(w.Minutes()), "round trip %s", w)
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    Window
		wantErr bool
	}{
		{"15m", Window15m, false},
		{"30", Window30m, false},
		{"", WindowNone, false},
		{"0", WindowNone, false},
		{"later", WindowNone, true},
	}
	for _, tt := range tests {
		got, err := ParseWindow(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseOKEventPolicy(t *testing.T) {
	tests := map[string]OKEventPolicy{
		"expression":          OKEventExpression,
		"Recovery expression": OKEventRecoveryExpression,
		"recoveryExpression":  OKEventRecoveryExpression,
		"NONE":                OKEventNone,
		"":                    "",
	}
	for in, want := range tests {
		got, err := ParseOKEventPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseOKEventPolicy("later")
	assert.Error(t, err)
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in         string
		want       Severity
		wantLegacy bool
		wantErr    bool
	}{
		{"High", SeverityHigh, false, false},
		{"not classified", SeverityNotClassified, false, false},
		{"Not Classified", SeverityNotClassified, false, false},
		{"DISASTER", SeverityDisaster, false, false},
		{"critical", SeverityHigh, true, false},
		{"Critical", SeverityHigh, true, false},
		{"", "", false, false},
		{"urgent", "", false, true},
	}
	for _, tt := range tests {
		got, legacy, err := ParseSeverity(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantLegacy, legacy, tt.in)
	}
}

func TestSeverity_Display(t *testing.T) {
	assert.Equal(t, "#8B0000", SeverityDisaster.Color())
	assert.Equal(t, "Not classified", SeverityNotClassified.Label())
	assert.Equal(t, "inherit", Severity("critical").Color())
	assert.Len(t, Severities(), 6)
}

func TestGetSchema_Complete(t *testing.T) {
	s := GetSchema()

	values := func(opts []OptionSchema) []string {
		out := make([]string, len(opts))
		for i, o := range opts {
			out[i] = o.Value
		}
		return out
	}

	assert.Equal(t, []string{"avg", "min", "max", "last"}, values(s.Functions))
	assert.Equal(t, []string{"15m", "30m", "60m"}, values(s.Windows))
	assert.Equal(t, []string{">", ">=", "=", "<", "<="}, values(s.Operations))
	assert.Equal(t, []string{"and", "or"}, values(s.Joiners))
	assert.Equal(t, []string{"expression", "recovery expression", "none"}, values(s.OKEventPolicies))
	require.Len(t, s.Severities, 6)
	assert.Equal(t, "#808080", s.Severities[0].Color)
}
