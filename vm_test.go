// Copyright 2024 The letin Authors
// This file is part of letin.

package letin

import (
	"testing"

	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/loader"
	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

func arg(t opcode.ArgType, v int32) opcode.Arg { return opcode.Arg{Type: t, Value: v} }

// addModule builds a single-module program: fn(a, b) = RET IADD(arg0, arg1),
// declared as the module's entry function.
func addModule() *loader.Module {
	return &loader.Module{
		Header: loader.Header{
			Magic:         loader.Magic,
			EntryFunIndex: 0,
			FunCount:      1,
		},
		Functions: []loader.RawFunction{{Address: 0, ArgCount: 2, InstrCount: 1}},
		Code: []opcode.Instruction{
			{Instr: opcode.RET, Op: opcode.IADD, Arg1: arg(opcode.ArgArg, 0), Arg2: arg(opcode.ArgArg, 1)},
		},
	}
}

func TestStartRunsEntryAndInvokesCallback(t *testing.T) {
	collector := gc.New(nil)
	link := loader.Link(collector, []*loader.Module{addModule()}, nil)
	if !link.OK {
		t.Fatalf("Link failed: %+v", link.Errors)
	}

	vm, rerr := New(link, collector, nil, nil)
	if rerr != nil {
		t.Fatalf("New: %v", rerr)
	}

	var got value.Value
	var gotErr *errs.RuntimeError
	vm.Start(0, []value.Value{value.Int(3), value.Int(4)}, func(v value.Value, e *errs.RuntimeError) {
		got, gotErr = v, e
	})
	if gotErr != nil {
		t.Fatalf("Start: %v", gotErr)
	}
	if got.Kind != value.KindInt || got.I != 7 {
		t.Fatalf("result = %+v, want int 7", got)
	}
}

func TestStartReportsNoEntryWhenModuleIsLibrary(t *testing.T) {
	collector := gc.New(nil)
	m := addModule()
	m.Header.Flags |= loader.FlagLibrary
	link := loader.Link(collector, []*loader.Module{m}, nil)
	if !link.OK {
		t.Fatalf("Link failed: %+v", link.Errors)
	}

	vm, rerr := New(link, collector, nil, nil)
	if rerr != nil {
		t.Fatalf("New: %v", rerr)
	}

	called := false
	vm.Start(0, nil, func(v value.Value, e *errs.RuntimeError) {
		called = true
		if e == nil || e.Code != errs.NoEntry {
			t.Fatalf("callback error = %v, want NO_ENTRY", e)
		}
	})
	if !called {
		t.Fatalf("callback was not invoked")
	}
}

func TestStartWithIOAppendsUniqueToken(t *testing.T) {
	collector := gc.New(nil)
	m := &loader.Module{
		Header: loader.Header{Magic: loader.Magic, EntryFunIndex: 0, FunCount: 1},
		Functions: []loader.RawFunction{{Address: 0, ArgCount: 2, InstrCount: 1}},
		Code: []opcode.Instruction{
			// The entry takes two arguments, so it only runs (instead of failing
			// with INCORRECT_ARG_COUNT) if StartWithIO appended the IO token.
			{Instr: opcode.RET, Op: opcode.IADD, Arg1: arg(opcode.ArgArg, 0), Arg2: arg(opcode.ArgArg, 0)},
		},
	}
	link := loader.Link(collector, []*loader.Module{m}, nil)
	if !link.OK {
		t.Fatalf("Link failed: %+v", link.Errors)
	}
	vm, rerr := New(link, collector, nil, nil)
	if rerr != nil {
		t.Fatalf("New: %v", rerr)
	}

	var gotErr *errs.RuntimeError
	vm.StartWithIO(0, []value.Value{value.Int(1)}, func(v value.Value, e *errs.RuntimeError) {
		gotErr = e
	})
	if gotErr != nil {
		t.Fatalf("StartWithIO: %v", gotErr)
	}
}
