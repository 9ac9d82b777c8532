// Copyright 2024 The letin Authors
// This file is part of letin.

package eval

import (
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/value"
)

// Composite is the lazy+memo combination: lazy on entry (build a thunk,
// same as Lazy), memo on force (consulted from within the thunk body via
// MemoizingInvoker rather than at PreEnter time — the thunk has not
// actually run yet when PreEnter fires, so there is nothing to memoize
// until Force invokes it).
type Composite struct {
	*Lazy
}

// NewComposite returns a Composite strategy sharing Lazy's default
// must-share policy.
func NewComposite() *Composite {
	return &Composite{Lazy: NewLazy()}
}

// MemoizingInvoker wraps an Invoker so that forcing a composite-strategy
// thunk consults the memo table before running the callee and records the
// result afterward. The interpreter selects this Invoker (instead of its
// own bare dispatcher) when calling Force on a thunk whose function carries
// both the lazy and memoized annotations.
type MemoizingInvoker struct {
	Inner Invoker
	Memo  *Memo
	Alloc Allocator
}

func (m MemoizingInvoker) Invoke(funIndex int, args []value.Value) (value.Value, *errs.RuntimeError) {
	rt := combinedRuntime{Invoker: m.Inner, Allocator: m.Alloc}
	call := Call{FunIndex: funIndex, Args: args}

	if handled, result, rerr := m.Memo.PreEnter(call, rt); rerr != nil {
		return value.Value{}, rerr
	} else if handled {
		return result, nil
	}

	result, rerr := m.Inner.Invoke(funIndex, args)
	if rerr != nil {
		return value.Value{}, rerr
	}
	return m.Memo.PostLeave(call, result, rt)
}

type combinedRuntime struct {
	Invoker
	Allocator
}
