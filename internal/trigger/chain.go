package trigger

import (
	"fmt"
	"slices"

	"github.com/netwatch-oss/triggerkit/internal/errors"
)

// Editor errors.
var (
	ErrUnknownClause = errors.NewStd("unknown clause")
	ErrUnknownField  = errors.NewStd("unknown clause field")
	ErrInvalidValue  = errors.NewStd("invalid clause value")
)

// Chain is an ordered, non-empty list of clauses forming one boolean
// condition. Chains are values: editor operations return a new chain and
// never modify their input.
type Chain []Clause

// NewChain returns a chain holding a single blank clause.
func NewChain() Chain {
	return Chain{NewClause()}
}

// Clone returns an independent copy of c.
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}
	return slices.Clone(c)
}

// IndexOf returns the position of the clause with the given ID, or -1.
func (c Chain) IndexOf(id string) int {
	return slices.IndexFunc(c, func(cl Clause) bool { return cl.ID == id })
}

// Complete returns the complete clauses of c in order.
func (c Chain) Complete() Chain {
	out := make(Chain, 0, len(c))
	for _, cl := range c {
		if cl.IsComplete() {
			out = append(out, cl)
		}
	}
	return out
}

// HasComplete reports whether c contains at least one complete clause.
func (c Chain) HasComplete() bool {
	return slices.ContainsFunc(c, Clause.IsComplete)
}

// WithoutBlank drops clauses that have none of their required fields set.
// The result keeps at least one clause.
func (c Chain) WithoutBlank() Chain {
	out := make(Chain, 0, len(c))
	for _, cl := range c {
		if !cl.IsBlank() {
			out = append(out, cl)
		}
	}
	if len(out) == 0 {
		return NewChain()
	}
	return out
}

// EnsureIDs returns c with a fresh ID assigned to every clause lacking one,
// and a single blank clause if c is empty.
func (c Chain) EnsureIDs() Chain {
	if len(c) == 0 {
		return NewChain()
	}
	out := c.Clone()
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = NewClause().ID
		}
	}
	return out
}

// AddClause appends a blank clause. Recompiling is left to the caller.
func AddClause(c Chain) Chain {
	out := make(Chain, 0, len(c)+1)
	out = append(out, c...)
	return append(out, NewClause())
}

// RemoveClause removes the clause with the given ID. It is a no-op when the
// chain has a single clause or the ID is unknown.
func RemoveClause(c Chain, id string) Chain {
	idx := c.IndexOf(id)
	if len(c) <= 1 || idx < 0 {
		return c.Clone()
	}
	out := make(Chain, 0, len(c)-1)
	out = append(out, c[:idx]...)
	return append(out, c[idx+1:]...)
}

// UpdateClause sets one field of the clause with the given ID. Every other
// clause and field is left untouched. On error the original chain is
// returned unchanged.
func UpdateClause(c Chain, id string, field ClauseField, value string) (Chain, error) {
	idx := c.IndexOf(id)
	if idx < 0 {
		return c.Clone(), fmt.Errorf("%w: %s", ErrUnknownClause, id)
	}
	updated, err := c[idx].with(field, value)
	if err != nil {
		return c.Clone(), err
	}
	out := c.Clone()
	out[idx] = updated
	return out, nil
}
