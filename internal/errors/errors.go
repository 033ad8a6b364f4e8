// Package errors provides categorized errors used across triggerkit.
//
// It re-exports the standard library helpers so callers only import one
// errors package, and adds EnhancedError which carries a Category, the
// reporting component, and free-form context for logging.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Category classifies an error for callers that need to decide how to react.
type Category string

const (
	CategoryGeneric    Category = "generic"
	CategoryValidation Category = "validation"
	CategoryTransport  Category = "transport"
	CategoryConflict   Category = "conflict"
	CategoryNotFound   Category = "not-found"
	CategoryBusy       Category = "busy"
	CategoryDatabase   Category = "database"
	CategoryConfig     Category = "configuration"
)

// EnhancedError wraps an error with a category, component and context.
type EnhancedError struct {
	Err       error
	Category  Category
	Component string
	Context   map[string]any
}

func (e *EnhancedError) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	if len(e.Context) == 0 {
		return e.Err.Error()
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(e.Err.Error())
	b.WriteString(" (")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
	}
	b.WriteString(")")
	return b.String()
}

func (e *EnhancedError) Unwrap() error {
	return e.Err
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err *EnhancedError
}

// New starts building an EnhancedError around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: &EnhancedError{Err: err, Category: CategoryGeneric}}
}

// Newf starts building an EnhancedError from a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the reporting component.
func (b *ErrorBuilder) Component(component string) *ErrorBuilder {
	b.err.Component = component
	return b
}

// Category sets the error category.
func (b *ErrorBuilder) Category(category Category) *ErrorBuilder {
	b.err.Category = category
	return b
}

// Context attaches a key/value pair.
func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]any)
	}
	b.err.Context[key] = value
	return b
}

// Build returns the assembled error.
func (b *ErrorBuilder) Build() *EnhancedError {
	out := *b.err
	if b.err.Context != nil {
		out.Context = maps.Clone(b.err.Context)
	}
	return &out
}

// CategoryOf returns the category of the outermost EnhancedError in err's
// chain, or CategoryGeneric when there is none.
func CategoryOf(err error) Category {
	var ee *EnhancedError
	if As(err, &ee) {
		return ee.Category
	}
	return CategoryGeneric
}

// HasCategory reports whether any EnhancedError in err's chain has category c.
func HasCategory(err error, c Category) bool {
	for err != nil {
		var ee *EnhancedError
		if !As(err, &ee) {
			return false
		}
		if ee.Category == c {
			return true
		}
		err = ee.Err
	}
	return false
}

// NewStd creates a plain error, mirroring errors.New from the standard library.
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// Unwrap returns the result of calling Unwrap on err.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
