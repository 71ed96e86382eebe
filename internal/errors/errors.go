// Package errors wraps the standard library errors package with component
// and category metadata so failures can be attributed in logs and metrics
// without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies an error for reporting.
type Category string

const (
	CategoryDatabase   Category = "database"
	CategoryValidation Category = "validation"
	CategoryNetwork    Category = "network"
	CategoryNotFound   Category = "not-found"
	CategoryConfig     Category = "configuration"
	CategoryGeneric    Category = "generic"
)

// EnhancedError carries a component name and category alongside the cause.
type EnhancedError struct {
	Err       error
	Component string
	Cat       Category
}

func (e *EnhancedError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %v", e.Component, e.Err)
	}
	return e.Err.Error()
}

func (e *EnhancedError) Unwrap() error { return e.Err }

// Category returns the error's category, defaulting to generic.
func (e *EnhancedError) Category() Category {
	if e.Cat == "" {
		return CategoryGeneric
	}
	return e.Cat
}

// builder accumulates metadata before Build produces the final error.
type builder struct {
	err       error
	component string
	category  Category
}

// New starts building an enhanced error from an existing error.
func New(err error) *builder { //nolint:revive // builder is intentionally unexported
	return &builder{err: err}
}

// Newf starts building an enhanced error from a format string.
func Newf(format string, args ...any) *builder {
	return &builder{err: fmt.Errorf(format, args...)}
}

// Component records which subsystem produced the error.
func (b *builder) Component(name string) *builder {
	b.component = name
	return b
}

// Category records the error classification.
func (b *builder) Category(c Category) *builder {
	b.category = c
	return b
}

// Build returns the enhanced error.
func (b *builder) Build() error {
	return &EnhancedError{Err: b.err, Component: b.component, Cat: b.category}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// Join returns an error wrapping the given errors.
func Join(errs ...error) error { return errors.Join(errs...) }

// NewStd returns a plain sentinel error, for package-level sentinels.
func NewStd(text string) error { return errors.New(text) }
