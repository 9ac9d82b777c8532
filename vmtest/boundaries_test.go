// Copyright 2024 The letin Authors
// This file is part of letin.

package vmtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/letin-run/letin"
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/interp"
	"github.com/letin-run/letin/internal/loader"
	"github.com/letin-run/letin/internal/native"
	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

func runErr(t *testing.T, mod *loader.Module) *errs.RuntimeError {
	t.Helper()
	collector, result := link(t, []*loader.Module{mod}, nil)
	vm, rerr := letin.New(result, collector, nil, nil)
	require.Nil(t, rerr)
	var gotErr *errs.RuntimeError
	vm.Start(0, nil, func(_ value.Value, e *errs.RuntimeError) { gotErr = e })
	return gotErr
}

func TestDivByZero(t *testing.T) {
	b := &Builder{}
	b.AddFunc(Fn{ArgCount: 0, Code: []opcode.Instruction{
		Ret(opcode.IDIV, Imm(10), Imm(0)),
	}})
	got := runErr(t, b.Build())
	require.NotNil(t, got)
	require.Equal(t, errs.DivByZero, got.Code)
}

func TestIndexOutOfBounds(t *testing.T) {
	b := &Builder{}
	b.AddFunc(Fn{ArgCount: 0, Code: []opcode.Instruction{
		ArgI(opcode.NOP, Imm(int32('a')), opcode.Arg{}),
		Let(opcode.RIARRAY8, opcode.Arg{}, opcode.Arg{}), // local0 = "a"
		In(),
		Ret(opcode.RIA8NTH, Local(0), Imm(5)), // out of range
	}})
	got := runErr(t, b.Build())
	require.NotNil(t, got)
	require.Equal(t, errs.IndexOutOfBounds, got.Code)
}

// A zero-argument call into a function declared to take one argument must
// raise INCORRECT_ARG_COUNT (checked by internal/interp/dispatch.go's invoke
// before any instruction of the callee body runs).
func TestIncorrectArgCount(t *testing.T) {
	b := &Builder{}
	callee := b.AddFunc(Fn{ArgCount: 1, Code: []opcode.Instruction{
		Ret(opcode.NOP, Argn(0), opcode.Arg{}),
	}})
	b.AddFunc(Fn{ArgCount: 0, Code: []opcode.Instruction{
		{Instr: opcode.LET, Op: opcode.RCALL, Arg1: Imm(int32(callee))},
		In(),
		Ret(opcode.NOP, Local(0), opcode.Arg{}),
	}})
	b.Entry = 1
	got := runErr(t, b.Build())
	require.NotNil(t, got)
	require.Equal(t, errs.IncorrectArgCount, got.Code)
}

// Destructuring a non-tuple with LETTUPLE raises INCORRECT_VALUE, but a
// local_var_count that does not match the tuple's own arity raises
// INCORRECT_OBJECT — the tuple itself is the wrong kind of object for the
// requested shape, not the operand kind.
func TestLetTupleArityMismatch(t *testing.T) {
	b := &Builder{}
	b.AddFunc(Fn{ArgCount: 0, Code: []opcode.Instruction{
		ArgI(opcode.NOP, Imm(1), opcode.Arg{}),
		ArgI(opcode.NOP, Imm(2), opcode.Arg{}),
		Let(opcode.RTUPLE, opcode.Arg{}, opcode.Arg{}), // local0 = (1, 2)
		In(),
		LetTuple(Local(0), 3), // expects 3 slots, tuple has 2
		Ret(opcode.NOP, Imm(0), opcode.Arg{}),
	}})
	got := runErr(t, b.Build())
	require.NotNil(t, got)
	require.Equal(t, errs.IncorrectObject, got.Code)
}

// Destructuring the same tuple slot twice raises AGAIN_USED_UNIQUE once that
// slot holds a unique object: a native helper (vmtest.wrap_io) builds a
// one-element tuple directly around the unique IO token StartWithIO
// appends, the way a native allocator bypasses the plain RTUPLE opcode's
// CheckStoreIntoShared gate; the first LETTUPLE over that tuple cancels the
// slot and the second hits the canceled tag.
func TestAgainUsedUnique(t *testing.T) {
	reg := native.NewRegistry()
	wrap := reg.Register("vmtest.wrap_io", func(args []value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
		io := args[0]
		return value.RefValue(value.NewTuple([]value.Value{io}, []value.Kind{io.Kind})), nil
	})

	b := &Builder{}
	b.AddFunc(Fn{ArgCount: 1, Code: []opcode.Instruction{
		/*0*/ ArgI(opcode.NOP, Argn(0), opcode.Arg{}),
		/*1*/ {Instr: opcode.LET, Op: opcode.INCALL, Arg1: Imm(int32(wrap))},
		/*2*/ In(),
		/*3*/ LetTuple(Local(0), 1),
		/*4*/ In(),
		/*5*/ LetTuple(Local(0), 1),
		/*6*/ Ret(opcode.NOP, Imm(0), opcode.Arg{}),
	}})
	mod := b.Build()

	collector, result := link(t, []*loader.Module{mod}, reg.Symbols())
	vm, rerr := letin.New(result, collector, reg, nil)
	require.Nil(t, rerr)

	var gotErr *errs.RuntimeError
	vm.StartWithIO(0, nil, func(_ value.Value, e *errs.RuntimeError) { gotErr = e })
	require.NotNil(t, gotErr)
	require.Equal(t, errs.AgainUsedUnique, gotErr.Code)
}
