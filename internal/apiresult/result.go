// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package apiresult accumulates partial successes and failures across a
// multi-step bulk operation.
package apiresult

import "errors"

// Result keeps successes gathered before a later step failed. The zero value
// is ready to use. Not safe for concurrent use.
type Result[T any] struct {
	results []T
	errs    []error
}

// AddSuccess appends values in call order.
func (r *Result[T]) AddSuccess(v ...T) {
	r.results = append(r.results, v...)
}

// AddError records a failure. Nil errors are ignored.
func (r *Result[T]) AddError(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

// HasError reports whether any failure was recorded.
func (r *Result[T]) HasError() bool {
	return len(r.errs) > 0
}

// Errors returns the recorded failures in order.
func (r *Result[T]) Errors() []error {
	return append([]error(nil), r.errs...)
}

// ErrorMessages returns the messages of the recorded failures in order.
func (r *Result[T]) ErrorMessages() []string {
	out := make([]string, 0, len(r.errs))
	for _, err := range r.errs {
		out = append(out, err.Error())
	}
	return out
}

// Results returns the successes in order.
func (r *Result[T]) Results() []T {
	return append([]T(nil), r.results...)
}

// Err joins all failures, or returns nil.
func (r *Result[T]) Err() error {
	return errors.Join(r.errs...)
}
