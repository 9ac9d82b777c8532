// Copyright 2024 The letin Authors
// This file is part of letin.

package native

import (
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/interp"
	"github.com/letin-run/letin/internal/value"
)

// SetInt and SetFloat build immediate result values; neither allocates, so
// they need no ThreadRuntime.
func SetInt(i int64) value.Value     { return value.Int(i) }
func SetFloat(f float64) value.Value { return value.Float(f) }

// SetIArray allocates a fresh integer-array object of the given bit width
// (8/16/32/64) holding data, optionally marked unique, and returns a live
// reference to it.
func SetIArray(rt *interp.ThreadRuntime, width int, data []int64, unique bool) (value.Value, *errs.RuntimeError) {
	obj, rerr := rt.Allocate(func() *value.Object {
		o := value.NewIArray(width, data)
		if unique {
			o.Flags |= value.FlagUnique
		}
		return o
	})
	if rerr != nil {
		return value.Value{}, rerr
	}
	return value.RefValue(obj), nil
}

// SetBytes is SetIArray(8, ...) specialized for a []byte result, the common
// case for hashing and other byte-string-producing native functions.
func SetBytes(rt *interp.ThreadRuntime, data []byte, unique bool) (value.Value, *errs.RuntimeError) {
	ints := make([]int64, len(data))
	for i, b := range data {
		ints[i] = int64(b)
	}
	return SetIArray(rt, 8, ints, unique)
}

// SetFArray allocates a fresh float-array object (single or double
// precision per wide) holding data.
func SetFArray(rt *interp.ThreadRuntime, wide bool, data []float64, unique bool) (value.Value, *errs.RuntimeError) {
	obj, rerr := rt.Allocate(func() *value.Object {
		var o *value.Object
		if wide {
			o = value.NewDFArray(data)
		} else {
			o = value.NewSFArray(data)
		}
		if unique {
			o.Flags |= value.FlagUnique
		}
		return o
	})
	if rerr != nil {
		return value.Value{}, rerr
	}
	return value.RefValue(obj), nil
}

// SetTuple allocates a fresh tuple from already-built element values. It
// does not check elements for uniqueness (§4.1: a tuple slot records its own
// element's uniqueness via ElemTags, so sharing is fine here — unlike a
// plain rarray element, which CheckStoreIntoShared must guard separately).
func SetTuple(rt *interp.ThreadRuntime, elems []value.Value, unique bool) (value.Value, *errs.RuntimeError) {
	tags := make([]value.Kind, len(elems))
	for i, e := range elems {
		tags[i] = e.Kind
	}
	obj, rerr := rt.Allocate(func() *value.Object {
		o := value.NewTuple(elems, tags)
		if unique {
			o.Flags |= value.FlagUnique
		}
		return o
	})
	if rerr != nil {
		return value.Value{}, rerr
	}
	return value.RefValue(obj), nil
}

// SetOption builds a present/absent option value under the 2-tuple
// convention CheckOption expects.
func SetOption(rt *interp.ThreadRuntime, present bool, payload value.Value) (value.Value, *errs.RuntimeError) {
	tag := int64(0)
	if present {
		tag = 1
	}
	if !present {
		payload = value.Int(0)
	}
	return SetTuple(rt, []value.Value{value.Int(tag), payload}, false)
}

// SetEither builds a left/right either value under the 2-tuple convention
// CheckEither expects.
func SetEither(rt *interp.ThreadRuntime, isRight bool, payload value.Value) (value.Value, *errs.RuntimeError) {
	tag := int64(0)
	if isRight {
		tag = 1
	}
	return SetTuple(rt, []value.Value{value.Int(tag), payload}, false)
}

// SetRArray allocates a fresh reference-array object, checking every element
// is safe to store into a shared (non-unique-slot-tracked) container.
func SetRArray(rt *interp.ThreadRuntime, elems []value.Value, unique bool) (value.Value, *errs.RuntimeError) {
	for _, e := range elems {
		if rerr := value.CheckStoreIntoShared(e); rerr != nil {
			return value.Value{}, rerr
		}
	}
	obj, rerr := rt.Allocate(func() *value.Object {
		o := value.NewRArray(elems)
		if unique {
			o.Flags |= value.FlagUnique
		}
		return o
	})
	if rerr != nil {
		return value.Value{}, rerr
	}
	return value.RefValue(obj), nil
}

// ErrorResult builds the error-tagged return value a native function
// reports in place of a successful result (§7 "Native functions report
// errors by returning an error-tagged return value; the interpreter treats
// these identically to a THROW").
func ErrorResult(code errs.Code) (value.Value, *errs.RuntimeError) {
	return value.Value{}, errs.New(code)
}
