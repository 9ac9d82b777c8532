// Copyright 2024 The letin Authors
// This file is part of letin.

// Package coreutil is a worked-example native library: array/string helpers
// in the style of probe-lang's stdlib/math (Iota, Sum, Map, Zip, Reduce)
// rewritten against the checker/converter/setter bridge in package native,
// plus one sha3 hash function (SHA3-256). A native library exposes exactly
// three symbols to a host wiring it in: Initialize, Finalize, and
// NewNativeFunctionHandler.
package coreutil

import (
	"golang.org/x/crypto/sha3"

	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/interp"
	"github.com/letin-run/letin/internal/native"
	"github.com/letin-run/letin/internal/value"
	"github.com/letin-run/letin/internal/xlog"
)

// Initialize is called once before the handler's functions can be invoked;
// coreutil keeps no process-wide state, so this only logs.
func Initialize() {
	xlog.Debug("coreutil: initialize")
}

// Finalize is called once the VM is done with this library.
func Finalize() {
	xlog.Debug("coreutil: finalize")
}

// NewNativeFunctionHandler builds the registry this library exposes to a
// letin VM, suitable for passing to loader.Link via Registry.Symbols and to
// interp.New as the interp.NativeHandler.
func NewNativeFunctionHandler() *native.Registry {
	r := native.NewRegistry()
	r.Register("coreutil.iota", fnIota)
	r.Register("coreutil.sum", fnSum)
	r.Register("coreutil.map_add", fnMapAdd)
	r.Register("coreutil.zip_add", fnZipAdd)
	r.Register("coreutil.reduce_add", fnReduceAdd)
	r.Register("coreutil.sha3_256", fnSHA3_256)
	return r
}

// fnIota(n: int) -> iarray64: [0, 1, ..., n-1], mirroring
// probe-lang/stdlib/math.Iota generalized to the bridge's checked-argument
// convention.
func fnIota(args []value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	n, rerr := native.CheckInt(args[0], rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	if n.I < 0 {
		return native.ErrorResult(errs.IncorrectValue)
	}
	data := make([]int64, n.I)
	for i := range data {
		data[i] = int64(i)
	}
	return native.SetIArray(rt, 64, data, false)
}

// fnSum(arr: iarray64) -> int, mirroring U64Array.Sum.
func fnSum(args []value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	v, rerr := native.CheckIArray(args[0], rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	data, rerr := native.ToInt64Slice(v.Ref)
	if rerr != nil {
		return value.Value{}, rerr
	}
	var sum int64
	for _, n := range data {
		sum += n
	}
	return native.SetInt(sum), nil
}

// fnMapAdd(arr: iarray64, delta: int) -> iarray64: arr with delta added to
// every element, mirroring U64Array.Map with a fixed addition function (the
// bridge has no way to pass a letin function value as a native argument, so
// the worked example fixes the operation rather than taking a callback).
func fnMapAdd(args []value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	v, rerr := native.CheckIArray(args[0], rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	delta, rerr := native.CheckInt(args[1], rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	src, rerr := native.ToInt64Slice(v.Ref)
	if rerr != nil {
		return value.Value{}, rerr
	}
	out := make([]int64, len(src))
	for i, n := range src {
		out[i] = n + delta.I
	}
	return native.SetIArray(rt, 64, out, false)
}

// fnZipAdd(a, b: iarray64) -> iarray64: element-wise sum up to the shorter
// length, mirroring U64Array.Zip with a fixed addition function.
func fnZipAdd(args []value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	av, rerr := native.CheckIArray(args[0], rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	bv, rerr := native.CheckIArray(args[1], rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	a, rerr := native.ToInt64Slice(av.Ref)
	if rerr != nil {
		return value.Value{}, rerr
	}
	b, rerr := native.ToInt64Slice(bv.Ref)
	if rerr != nil {
		return value.Value{}, rerr
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] + b[i]
	}
	return native.SetIArray(rt, 64, out, false)
}

// fnReduceAdd(arr: iarray64, init: int) -> int, mirroring U64Array.Reduce
// with a fixed addition function.
func fnReduceAdd(args []value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	v, rerr := native.CheckIArray(args[0], rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	init, rerr := native.CheckInt(args[1], rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	data, rerr := native.ToInt64Slice(v.Ref)
	if rerr != nil {
		return value.Value{}, rerr
	}
	acc := init.I
	for _, n := range data {
		acc += n
	}
	return native.SetInt(acc), nil
}

// fnSHA3_256(data: iarray8) -> iarray8: the 32-byte SHA3-256 digest of data,
// grounded on probe-lang/lang/vm/vm_test.go's OpSHA3 tests — the teacher's
// own go.mod already pulls in golang.org/x/crypto for exactly this hash.
func fnSHA3_256(args []value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	v, rerr := native.CheckRef(value.TypeIArray8)(args[0], rt)
	if rerr != nil {
		return value.Value{}, rerr
	}
	data, rerr := native.ToBytes(v.Ref)
	if rerr != nil {
		return value.Value{}, rerr
	}
	sum := sha3.Sum256(data)
	return native.SetBytes(rt, sum[:], false)
}
