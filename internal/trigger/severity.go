package trigger

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Severity ranks how serious an alert raised by a trigger is.
//
// The console historically offered two vocabularies: a three-level set
// (warning, critical, disaster) when creating triggers and a six-level set
// when editing them. The six-level set is canonical here; "critical" is
// still accepted when reading stored records and is reported as legacy.
type Severity string

const (
	SeverityNotClassified Severity = "not classified"
	SeverityInformation   Severity = "information"
	SeverityWarning       Severity = "warning"
	SeverityAverage       Severity = "average"
	SeverityHigh          Severity = "high"
	SeverityDisaster      Severity = "disaster"
)

// legacySeverityCritical is the create-flow value that has no six-level
// counterpart. It is mapped to SeverityHigh.
const legacySeverityCritical = "critical"

type severityInfo struct {
	label string
	color string
}

var severityTable = map[Severity]severityInfo{
	SeverityNotClassified: {label: "Not classified", color: "#808080"},
	SeverityInformation:   {label: "Information", color: "#0000FF"},
	SeverityWarning:       {label: "Warning", color: "#FFA500"},
	SeverityAverage:       {label: "Average", color: "#FF4500"},
	SeverityHigh:          {label: "High", color: "#FF0000"},
	SeverityDisaster:      {label: "Disaster", color: "#8B0000"},
}

// Severities returns the canonical severities from least to most severe.
func Severities() []Severity {
	return []Severity{
		SeverityNotClassified,
		SeverityInformation,
		SeverityWarning,
		SeverityAverage,
		SeverityHigh,
		SeverityDisaster,
	}
}

// Valid reports whether s is a canonical severity.
func (s Severity) Valid() bool {
	_, ok := severityTable[s]
	return ok
}

// Label returns the display label.
func (s Severity) Label() string {
	if info, ok := severityTable[s]; ok {
		return info.label
	}
	return string(s)
}

// Color returns the display color, or "inherit" for unknown values.
func (s Severity) Color() string {
	if info, ok := severityTable[s]; ok {
		return info.color
	}
	return "inherit"
}

var severityFolder = cases.Fold()

// ParseSeverity resolves a stored or user supplied severity. Matching is
// case-insensitive. legacy is true when the input came from the retired
// three-level vocabulary and had to be mapped.
func ParseSeverity(s string) (sev Severity, legacy bool, err error) {
	folded := severityFolder.String(strings.TrimSpace(s))
	if folded == "" {
		return "", false, nil
	}
	if folded == legacySeverityCritical {
		return SeverityHigh, true, nil
	}
	for _, candidate := range Severities() {
		if severityFolder.String(string(candidate)) == folded {
			return candidate, false, nil
		}
	}
	return "", false, fmt.Errorf("unknown severity %q", s)
}
