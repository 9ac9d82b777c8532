// Copyright 2024 The letin Authors
// This file is part of letin.

package eval

import (
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/value"
)

// Lazy builds a thunk on entry instead of running the callee's body.
// Forcing is symmetric: Force walks a lazy/locked_lazy reference down to
// its underlying value, invoking the captured callee on first demand and
// caching the result when the thunk's must_be_shared flag is set.
type Lazy struct {
	// MustShare decides, per call, whether the built thunk requires its
	// forced value to be written back under the thunk's lock for sharing
	// with concurrent forcers. The conservative default (always true) is
	// correct for every case; callers may narrow it once they can prove a
	// thunk is single-owner.
	MustShare func(call Call) bool
}

// NewLazy returns a Lazy strategy that always shares forced results.
func NewLazy() *Lazy {
	return &Lazy{MustShare: func(Call) bool { return true }}
}

func (l *Lazy) PreEnter(call Call, rt Runtime) (bool, value.Value, *errs.RuntimeError) {
	mustShare := true
	if l.MustShare != nil {
		mustShare = l.MustShare(call)
	}
	obj, rerr := rt.Allocate(func() *value.Object {
		return value.NewLazyValue(call.FunIndex, call.Args, mustShare)
	})
	if rerr != nil {
		return false, value.Value{}, rerr
	}
	return true, value.LazyRefValue(obj, mustShare), nil
}

func (l *Lazy) PostLeave(_ Call, result value.Value, _ Runtime) (value.Value, *errs.RuntimeError) {
	return result, nil
}

// Force walks v down to its underlying non-lazy value. If v is not a lazy
// reference it is returned unchanged. Forcing a lazy_value whose thunk has
// not yet run invokes it through inv; concurrent forcers of the same thunk
// block on its mutex and the first to arrive computes the result for all of
// them.
func Force(v value.Value, inv Invoker) (value.Value, *errs.RuntimeError) {
	for v.IsLazy() {
		obj := v.Ref
		lv := obj.Lazy
		lv.Mu.Lock()
		if lv.Value.Kind != value.KindError {
			result := lv.Value
			lv.Mu.Unlock()
			v = result
			continue
		}
		result, rerr := inv.Invoke(lv.FunIndex, lv.Args)
		if rerr != nil {
			lv.Mu.Unlock()
			return value.Value{}, rerr
		}
		if v.Kind == value.KindLockedLazyRef || lv.MustBeShared {
			lv.Value = result
		}
		lv.Mu.Unlock()
		v = result
	}
	return v, nil
}

// DeepForce forces v and, if the result is itself an rarray/tuple
// containing lazy references, forces those too. Memoization needs this to
// build a stable cache key from arguments that may still be thunks.
func DeepForce(v value.Value, inv Invoker) (value.Value, *errs.RuntimeError) {
	forced, rerr := Force(v, inv)
	if rerr != nil {
		return value.Value{}, rerr
	}
	if forced.Kind != value.KindRef || forced.Ref == nil {
		return forced, nil
	}
	switch forced.Ref.Type {
	case value.TypeRArray:
		for i, elem := range forced.Ref.Refs {
			fe, rerr := DeepForce(elem, inv)
			if rerr != nil {
				return value.Value{}, rerr
			}
			forced.Ref.Refs[i] = fe
		}
	case value.TypeTuple:
		for i, elem := range forced.Ref.Refs {
			if forced.Ref.ElemTags[i] != value.KindLazyRef && forced.Ref.ElemTags[i] != value.KindLockedLazyRef {
				continue
			}
			fe, rerr := DeepForce(elem, inv)
			if rerr != nil {
				return value.Value{}, rerr
			}
			forced.Ref.Refs[i] = fe
			forced.Ref.ElemTags[i] = fe.Kind
		}
	}
	return forced, nil
}
