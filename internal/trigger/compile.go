package trigger

import "strings"

// Compile renders a chain as the canonical expression consumed by the
// evaluator. Incomplete clauses are skipped. Clauses are joined left to
// right by the joiner of the preceding complete clause; the last complete
// clause never contributes a joiner.
//
//	avg(cpu_load,15m) > 90 and max(mem_used) >= 80
func Compile(chain Chain) string {
	complete := chain.Complete()
	var b strings.Builder
	for i, c := range complete {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Term())
		if i < len(complete)-1 {
			b.WriteByte(' ')
			b.WriteString(string(c.Joiner.OrDefault()))
		}
	}
	return b.String()
}

// Expression is shorthand for Compile(c).
func (c Chain) Expression() string {
	return Compile(c)
}
