//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package query

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is matched by every *ParserError.
	ErrParse = errors.New("query: invalid filter")
	// ErrEval is matched by every *EvalError.
	ErrEval = errors.New("query: evaluation failed")

	// ErrMissingOperator is returned for a token without an operator segment.
	ErrMissingOperator = errors.New("missing operator")
	// ErrUnknownOperator is returned for an operator name or kind that does not exist.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrArgumentCount is returned when an operator gets the wrong number of arguments.
	ErrArgumentCount = errors.New("wrong argument count")
	// ErrInvalidArgument is returned when an argument cannot be converted to the property type.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIncompatibleOperator is returned when an operator does not apply to the property kind.
	ErrIncompatibleOperator = errors.New("incompatible operator")
	// ErrInvalidOrder is returned for malformed or non-sortable orderings.
	ErrInvalidOrder = errors.New("invalid order")
)

// ParserError reports invalid caller input in a textual filter or order.
type ParserError struct {
	Token string
	Err   error
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("invalid filter %q: %v", e.Token, e.Err)
}

// Unwrap exposes ErrParse and the cause.
func (e *ParserError) Unwrap() []error { return []error{ErrParse, e.Err} }

// EvalError reports a query that could not be executed, typically a
// programmatically built filter whose path does not resolve.
type EvalError struct {
	Type string
	Path string
	Err  error
}

func (e *EvalError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("query on %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("query on %s, path %q: %v", e.Type, e.Path, e.Err)
}

// Unwrap exposes ErrEval and the cause.
func (e *EvalError) Unwrap() []error { return []error{ErrEval, e.Err} }
