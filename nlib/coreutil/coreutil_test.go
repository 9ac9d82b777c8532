// Copyright 2024 The letin Authors
// This file is part of letin.

package coreutil

import (
	"testing"

	"github.com/letin-run/letin/internal/env"
	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/interp"
	"github.com/letin-run/letin/internal/native"
	"github.com/letin-run/letin/internal/value"
)

func newRuntime() *interp.ThreadRuntime {
	e := env.New()
	collector := gc.New(nil)
	ip := interp.New(e, collector, nil, false, false, 16)
	ctx := gc.NewThreadContext(64)
	collector.AddThreadContext(ctx)
	return ip.NewThreadRuntime(ctx)
}

func call(t *testing.T, r *native.Registry, name string, args []value.Value) value.Value {
	t.Helper()
	idx, ok := r.Symbols()[name]
	if !ok {
		t.Fatalf("no such native function %q", name)
	}
	result, rerr := r.Call(idx, args, newRuntime())
	if rerr != nil {
		t.Fatalf("%s: %v", name, rerr)
	}
	return result
}

func TestIotaBuildsAscendingArray(t *testing.T) {
	r := NewNativeFunctionHandler()
	result := call(t, r, "coreutil.iota", []value.Value{value.Int(4)})
	if result.Ref.Length != 4 {
		t.Fatalf("length = %d, want 4", result.Ref.Length)
	}
	for i, n := range result.Ref.Ints {
		if n != int64(i) {
			t.Fatalf("Ints[%d] = %d, want %d", i, n, i)
		}
	}
}

func TestIotaRejectsNegativeLength(t *testing.T) {
	r := NewNativeFunctionHandler()
	idx := r.Symbols()["coreutil.iota"]
	_, rerr := r.Call(idx, []value.Value{value.Int(-1)}, newRuntime())
	if rerr == nil {
		t.Fatalf("Call(-1) succeeded, want INCORRECT_VALUE")
	}
}

func TestSumAddsElements(t *testing.T) {
	r := NewNativeFunctionHandler()
	rt := newRuntime()
	arr, rerr := native.SetIArray(rt, 64, []int64{1, 2, 3, 4}, false)
	if rerr != nil {
		t.Fatalf("SetIArray: %v", rerr)
	}
	idx := r.Symbols()["coreutil.sum"]
	result, rerr := r.Call(idx, []value.Value{arr}, rt)
	if rerr != nil {
		t.Fatalf("sum: %v", rerr)
	}
	if result.I != 10 {
		t.Fatalf("sum = %d, want 10", result.I)
	}
}

func TestMapAddShiftsEveryElement(t *testing.T) {
	r := NewNativeFunctionHandler()
	rt := newRuntime()
	arr, rerr := native.SetIArray(rt, 64, []int64{1, 2, 3}, false)
	if rerr != nil {
		t.Fatalf("SetIArray: %v", rerr)
	}
	idx := r.Symbols()["coreutil.map_add"]
	result, rerr := r.Call(idx, []value.Value{arr, value.Int(10)}, rt)
	if rerr != nil {
		t.Fatalf("map_add: %v", rerr)
	}
	want := []int64{11, 12, 13}
	for i, n := range result.Ref.Ints {
		if n != want[i] {
			t.Fatalf("Ints[%d] = %d, want %d", i, n, want[i])
		}
	}
}

func TestZipAddTruncatesToShorterOperand(t *testing.T) {
	r := NewNativeFunctionHandler()
	rt := newRuntime()
	a, _ := native.SetIArray(rt, 64, []int64{1, 2, 3}, false)
	b, _ := native.SetIArray(rt, 64, []int64{10, 20}, false)
	idx := r.Symbols()["coreutil.zip_add"]
	result, rerr := r.Call(idx, []value.Value{a, b}, rt)
	if rerr != nil {
		t.Fatalf("zip_add: %v", rerr)
	}
	if result.Ref.Length != 2 || result.Ref.Ints[0] != 11 || result.Ref.Ints[1] != 22 {
		t.Fatalf("result = %+v", result.Ref.Ints)
	}
}

func TestReduceAddFoldsFromInit(t *testing.T) {
	r := NewNativeFunctionHandler()
	rt := newRuntime()
	arr, _ := native.SetIArray(rt, 64, []int64{1, 2, 3}, false)
	idx := r.Symbols()["coreutil.reduce_add"]
	result, rerr := r.Call(idx, []value.Value{arr, value.Int(100)}, rt)
	if rerr != nil {
		t.Fatalf("reduce_add: %v", rerr)
	}
	if result.I != 106 {
		t.Fatalf("result = %d, want 106", result.I)
	}
}

func TestSHA3_256MatchesKnownDigestLength(t *testing.T) {
	r := NewNativeFunctionHandler()
	rt := newRuntime()
	data, _ := native.SetBytes(rt, []byte("hello"), false)
	idx := r.Symbols()["coreutil.sha3_256"]
	result, rerr := r.Call(idx, []value.Value{data}, rt)
	if rerr != nil {
		t.Fatalf("sha3_256: %v", rerr)
	}
	if result.Ref.Length != 32 {
		t.Fatalf("digest length = %d, want 32", result.Ref.Length)
	}
}
