// Copyright 2024 The letin Authors
// This file is part of letin.

package native

import (
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/interp"
	"github.com/letin-run/letin/internal/value"
)

// Checker validates one argument's shape, forcing a thunk first if needed,
// and returns the forced value unchanged — never a lazy or wrongly-typed
// one (§4.6 guarantee (i)). Composite checkers (CheckTuple, CheckOption,
// CheckEither) recurse by running an element Checker per slot.
type Checker func(v value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError)

func force(v value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	if !v.IsLazy() {
		return v, nil
	}
	return rt.Force(v)
}

// CheckInt validates v is (after forcing) an int.
func CheckInt(v value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	fv, rerr := force(v, rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	if fv.Kind != value.KindInt {
		return value.Value{}, errs.New(errs.IncorrectValue)
	}
	return fv, nil
}

// CheckFloat validates v is (after forcing) a float.
func CheckFloat(v value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	fv, rerr := force(v, rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	if fv.Kind != value.KindFloat {
		return value.Value{}, errs.New(errs.IncorrectValue)
	}
	return fv, nil
}

// CheckRef validates v is (after forcing) a live reference to an object of
// one of the given types (or any ref, when types is empty).
func CheckRef(types ...value.ObjType) Checker {
	return func(v value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
		fv, rerr := force(v, rt)
		if rerr != nil {
			return value.Value{}, rerr
		}
		if fv.Kind != value.KindRef || fv.Ref == nil {
			return value.Value{}, errs.New(errs.IncorrectValue)
		}
		if len(types) == 0 {
			return fv, nil
		}
		for _, t := range types {
			if fv.Ref.Type == t {
				return fv, nil
			}
		}
		return value.Value{}, errs.New(errs.IncorrectObject)
	}
}

// CheckUnique wraps inner, additionally requiring the checked reference's
// object to be a unique (linear) object (§4.1 invariant 1; §4.6 "Unique
// variants additionally require ownership-uniqueness").
func CheckUnique(inner Checker) Checker {
	return func(v value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
		fv, rerr := inner(v, rt)
		if rerr != nil {
			return value.Value{}, rerr
		}
		if fv.Kind != value.KindRef || fv.Ref == nil || !fv.Ref.Unique() {
			return value.Value{}, errs.New(errs.IncorrectValue)
		}
		return fv, nil
	}
}

// CheckIArray validates v is a reference to one of the integer-array object
// types (any width).
func CheckIArray(v value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	return CheckRef(value.TypeIArray8, value.TypeIArray16, value.TypeIArray32, value.TypeIArray64)(v, rt)
}

// CheckTuple validates v is a reference to a tuple of exactly
// len(elemCheckers) slots, running elemCheckers[i] against (the forced form
// of) slot i, and returns the forced per-slot values.
func CheckTuple(v value.Value, rt *interp.ThreadRuntime, elemCheckers ...Checker) ([]value.Value, *errs.RuntimeError) {
	fv, rerr := CheckRef(value.TypeTuple)(v, rt)
	if rerr != nil {
		return nil, rerr
	}
	obj := fv.Ref
	if obj.Length != len(elemCheckers) {
		return nil, errs.New(errs.IncorrectValue)
	}
	out := make([]value.Value, len(elemCheckers))
	for i, chk := range elemCheckers {
		if obj.ElemTags[i] == value.KindCanceledRef {
			return nil, errs.New(errs.AgainUsedUnique)
		}
		ev, rerr := chk(obj.Refs[i], rt)
		if rerr != nil {
			return nil, rerr
		}
		out[i] = ev
	}
	return out, nil
}

// OptionResult is the outcome of checking an option value, encoded as the
// 2-tuple convention (int tag: 0 = none, 1 = some; payload) documented in
// DESIGN.md's Open Question resolution for composite native-bridge shapes.
type OptionResult struct {
	Present bool
	Value   value.Value
}

// CheckOption validates v against the option-as-tuple convention, running
// elem against the payload slot only when the tag marks it present.
func CheckOption(v value.Value, rt *interp.ThreadRuntime, elem Checker) (OptionResult, *errs.RuntimeError) {
	fv, rerr := CheckRef(value.TypeTuple)(v, rt)
	if rerr != nil {
		return OptionResult{}, rerr
	}
	obj := fv.Ref
	if obj.Length != 2 {
		return OptionResult{}, errs.New(errs.IncorrectValue)
	}
	tagV, rerr := CheckInt(obj.Refs[0], rt)
	if rerr != nil {
		return OptionResult{}, rerr
	}
	if tagV.I == 0 {
		return OptionResult{Present: false}, nil
	}
	if tagV.I != 1 {
		return OptionResult{}, errs.New(errs.IncorrectValue)
	}
	payload, rerr := elem(obj.Refs[1], rt)
	if rerr != nil {
		return OptionResult{}, rerr
	}
	return OptionResult{Present: true, Value: payload}, nil
}

// EitherResult is the outcome of checking an either value, encoded as the
// 2-tuple convention (int tag: 0 = left, 1 = right; payload).
type EitherResult struct {
	Right bool
	Value value.Value
}

// CheckEither validates v against the either-as-tuple convention, running
// left or right against the payload slot depending on the tag.
func CheckEither(v value.Value, rt *interp.ThreadRuntime, left, right Checker) (EitherResult, *errs.RuntimeError) {
	fv, rerr := CheckRef(value.TypeTuple)(v, rt)
	if rerr != nil {
		return EitherResult{}, rerr
	}
	obj := fv.Ref
	if obj.Length != 2 {
		return EitherResult{}, errs.New(errs.IncorrectValue)
	}
	tagV, rerr := CheckInt(obj.Refs[0], rt)
	if rerr != nil {
		return EitherResult{}, rerr
	}
	switch tagV.I {
	case 0:
		payload, rerr := left(obj.Refs[1], rt)
		if rerr != nil {
			return EitherResult{}, rerr
		}
		return EitherResult{Right: false, Value: payload}, nil
	case 1:
		payload, rerr := right(obj.Refs[1], rt)
		if rerr != nil {
			return EitherResult{}, rerr
		}
		return EitherResult{Right: true, Value: payload}, nil
	default:
		return EitherResult{}, errs.New(errs.IncorrectValue)
	}
}
