// Copyright 2024 The letin Authors
// This file is part of letin.

// Package eval implements the evaluation-strategy layer that intercepts
// every function invocation: eager (no-op), lazy thunking, memoization, and
// their composite. Each strategy is consulted by the interpreter before and
// after a call through the Strategy interface.
package eval

import (
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/value"
)

// Invoker runs a function body to completion, recursively going back
// through the whole pre/post-call machinery for any calls the body itself
// makes. Lazy forcing and a memoization miss both need to actually run a
// callee, which only the interpreter can do; Invoker is the seam that lets
// this package stay independent of the interpreter's frame/stack layout.
type Invoker interface {
	Invoke(funIndex int, args []value.Value) (value.Value, *errs.RuntimeError)
}

// Allocator allocates a heap object on behalf of the calling thread
// context, mirroring gc.Collector.Allocate's signature without importing
// package gc (which must not depend on eval).
type Allocator interface {
	Allocate(build func() *value.Object) (*value.Object, *errs.RuntimeError)
}

// Runtime is everything a strategy hook may need from its caller: enough to
// force a nested thunk (Invoker) and to allocate a new heap object
// (Allocator).
type Runtime interface {
	Invoker
	Allocator
}

// Call bundles everything a strategy needs to decide and execute the hooks
// for one invocation.
type Call struct {
	FunIndex   int
	ResultKind value.Kind
	Args       []value.Value
}

// Strategy is consulted before and after every function invocation.
type Strategy interface {
	// PreEnter is asked before entering the callee's body. If handled is
	// true, the interpreter skips the body and uses result as the call's
	// outcome.
	PreEnter(call Call, rt Runtime) (handled bool, result value.Value, rerr *errs.RuntimeError)
	// PostLeave is asked after the callee's body has executed with result
	// as its raw outcome; it returns the (possibly rewritten) final result,
	// e.g. after inserting it into a memoization table.
	PostLeave(call Call, result value.Value, rt Runtime) (value.Value, *errs.RuntimeError)
}

// Eager is the no-op strategy: both hooks pass through unchanged.
type Eager struct{}

func (Eager) PreEnter(Call, Runtime) (bool, value.Value, *errs.RuntimeError) {
	return false, value.Value{}, nil
}

func (Eager) PostLeave(_ Call, result value.Value, _ Runtime) (value.Value, *errs.RuntimeError) {
	return result, nil
}
