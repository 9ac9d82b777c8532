// Copyright 2024 The letin Authors
// This file is part of letin.

package native

import (
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/value"
)

// ToInt64 extracts the int payload of an already-checked int Value.
func ToInt64(v value.Value) int64 { return v.I }

// ToFloat64 extracts the float payload of an already-checked float Value.
func ToFloat64(v value.Value) float64 { return v.F }

// ToInt32 narrows an already-checked int Value to int32, reporting
// INCORRECT_VALUE if it does not fit (§4.6 "Conversions for int/float
// include optional range-narrowing to platform types").
func ToInt32(v value.Value) (int32, *errs.RuntimeError) {
	if v.I < -(1<<31) || v.I > (1<<31)-1 {
		return 0, errs.New(errs.IncorrectValue)
	}
	return int32(v.I), nil
}

// ToInt16 narrows an already-checked int Value to int16.
func ToInt16(v value.Value) (int16, *errs.RuntimeError) {
	if v.I < -(1<<15) || v.I > (1<<15)-1 {
		return 0, errs.New(errs.IncorrectValue)
	}
	return int16(v.I), nil
}

// ToInt8 narrows an already-checked int Value to int8.
func ToInt8(v value.Value) (int8, *errs.RuntimeError) {
	if v.I < -(1<<7) || v.I > (1<<7)-1 {
		return 0, errs.New(errs.IncorrectValue)
	}
	return int8(v.I), nil
}

// ToUint narrows an already-checked int Value to a non-negative uint64.
func ToUint(v value.Value) (uint64, *errs.RuntimeError) {
	if v.I < 0 {
		return 0, errs.New(errs.IncorrectValue)
	}
	return uint64(v.I), nil
}

// ToFloat32 narrows an already-checked float Value to float32, reporting
// INCORRECT_VALUE on overflow past float32's finite range.
func ToFloat32(v value.Value) (float32, *errs.RuntimeError) {
	f := float32(v.F)
	if v.F != 0 && (f == 0 || (f > 3.4e38 || f < -3.4e38)) {
		return 0, errs.New(errs.IncorrectValue)
	}
	return f, nil
}

// ToBytes extracts an already-checked iarray8 object's elements as a []byte,
// narrowing each int64 element to a byte (0-255).
func ToBytes(obj *value.Object) ([]byte, *errs.RuntimeError) {
	if obj.Type != value.TypeIArray8 {
		return nil, errs.New(errs.IncorrectObject)
	}
	out := make([]byte, len(obj.Ints))
	for i, n := range obj.Ints {
		if n < 0 || n > 255 {
			return nil, errs.New(errs.IncorrectValue)
		}
		out[i] = byte(n)
	}
	return out, nil
}

// ToInt64Slice extracts an already-checked integer-array object's elements
// (any width) as a plain []int64.
func ToInt64Slice(obj *value.Object) ([]int64, *errs.RuntimeError) {
	switch obj.Type {
	case value.TypeIArray8, value.TypeIArray16, value.TypeIArray32, value.TypeIArray64:
		return obj.Ints, nil
	default:
		return nil, errs.New(errs.IncorrectObject)
	}
}
