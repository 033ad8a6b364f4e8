package trigger

// Schema describes the choices available when building a trigger.
type Schema struct {
	Functions       []OptionSchema   `json:"functions"`
	Windows         []OptionSchema   `json:"windows"`
	Operations      []OptionSchema   `json:"operations"`
	Joiners         []OptionSchema   `json:"joiners"`
	Severities      []SeveritySchema `json:"severities"`
	OKEventPolicies []OptionSchema   `json:"okEventPolicies"`
}

// OptionSchema is one selectable value.
type OptionSchema struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SeveritySchema is a severity with its display color.
type SeveritySchema struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// GetSchema returns the editor catalog.
func GetSchema() Schema {
	s := Schema{
		Functions: []OptionSchema{
			{Value: string(FunctionAvg), Label: "avg()"},
			{Value: string(FunctionMin), Label: "min()"},
			{Value: string(FunctionMax), Label: "max()"},
			{Value: string(FunctionLast), Label: "last()"},
		},
		Operations: []OptionSchema{
			{Value: string(OperationGreater), Label: ">"},
			{Value: string(OperationGreaterOrEqual), Label: ">="},
			{Value: string(OperationEqual), Label: "="},
			{Value: string(OperationLess), Label: "<"},
			{Value: string(OperationLessOrEqual), Label: "<="},
		},
		Joiners: []OptionSchema{
			{Value: string(JoinerAnd), Label: "AND"},
			{Value: string(JoinerOr), Label: "OR"},
		},
		OKEventPolicies: []OptionSchema{
			{Value: string(OKEventExpression), Label: "Expression"},
			{Value: string(OKEventRecoveryExpression), Label: "Recovery expression"},
			{Value: string(OKEventNone), Label: "None"},
		},
	}
	for _, w := range supportedWindows {
		s.Windows = append(s.Windows, OptionSchema{Value: string(w), Label: string(w)})
	}
	for _, sev := range Severities() {
		s.Severities = append(s.Severities, SeveritySchema{
			Value: string(sev),
			Label: sev.Label(),
			Color: sev.Color(),
		})
	}
	return s
}
