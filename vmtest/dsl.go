// Copyright 2024 The letin Authors
// This file is part of letin.

// Package vmtest assembles small, hand-built module images in memory and
// runs them end to end through the root letin package, the way
// probe-lang/lang/vm/vm_test.go's instr/instrWide/program helpers build raw
// bytecode directly rather than through a text assembler — generalized here
// to letin's {instr, op, arg1, arg2, local_var_count} instruction encoding
// and its function/var/symbol/relocation tables.
package vmtest

import (
	"github.com/letin-run/letin/internal/env"
	"github.com/letin-run/letin/internal/loader"
	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

// A arg builds one instruction operand.
func A(t opcode.ArgType, v int32) opcode.Arg { return opcode.Arg{Type: t, Value: v} }

// Local, Argn, Imm and Global are the four operand constructors, named for
// what they address rather than for the ArgType constant, so a hand-written
// program reads close to the pseudo-assembly in spec prose.
func Local(i int32) opcode.Arg  { return A(opcode.ArgLocal, i) }
func Argn(i int32) opcode.Arg   { return A(opcode.ArgArg, i) }
func Imm(i int32) opcode.Arg    { return A(opcode.ArgImmediate, i) }
func Global(i int32) opcode.Arg { return A(opcode.ArgGlobal, i) }

func I(instr opcode.Instr, op opcode.Op, a1, a2 opcode.Arg) opcode.Instruction {
	return opcode.Instruction{Instr: instr, Op: op, Arg1: a1, Arg2: a2}
}

// Let, Ret, ArgI, Jc and a handful of other per-Instr shorthands cover the
// zero/one-operand cases I() would otherwise need a lot of zero-value Args
// for.
func Let(op opcode.Op, a1, a2 opcode.Arg) opcode.Instruction { return I(opcode.LET, op, a1, a2) }
func Ret(op opcode.Op, a1, a2 opcode.Arg) opcode.Instruction { return I(opcode.RET, op, a1, a2) }
func ArgI(op opcode.Op, a1, a2 opcode.Arg) opcode.Instruction {
	return I(opcode.ARG, op, a1, a2)
}
func In() opcode.Instruction   { return opcode.Instruction{Instr: opcode.IN} }
func Retry() opcode.Instruction { return opcode.Instruction{Instr: opcode.RETRY} }

// Jc jumps by offset instructions (relative to the JC instruction's own
// index, matching internal/interp/dispatch.go's ctx.IP += in.Arg2.Value)
// when cond is nonzero.
func Jc(cond opcode.Arg, offset int32) opcode.Instruction {
	return opcode.Instruction{Instr: opcode.JC, Arg1: cond, Arg2: Imm(offset)}
}

func LetTuple(src opcode.Arg, localVarCount int) opcode.Instruction {
	return opcode.Instruction{Instr: opcode.LETTUPLE, Arg1: src, LocalVarCount: localVarCount}
}

// Fn describes one function body before it is assembled into a Module: its
// argument count and its instructions (InstrCount/Address are derived when
// the enclosing Module is built).
type Fn struct {
	ArgCount int
	Code     []opcode.Instruction
	Info     *env.FunInfo // nil unless this function carries a strategy annotation
}

// Builder assembles one Module's function table, combined code stream, var
// table and symbol/relocation tables by hand, mirroring what Parse would
// otherwise decode from a byte image.
type Builder struct {
	Flags loader.Flag
	Entry int

	funs  []Fn
	vars  []value.Value
	syms  []loader.Symbol
	relocs []loader.Relocation
}

func (b *Builder) AddFunc(f Fn) int {
	b.funs = append(b.funs, f)
	return len(b.funs) - 1
}

func (b *Builder) AddVar(v value.Value) int {
	b.vars = append(b.vars, v)
	return len(b.vars) - 1
}

func (b *Builder) ExportFunc(name string, localIndex int) {
	b.syms = append(b.syms, loader.Symbol{Kind: loader.SymFunc, Name: name, Index: localIndex})
}

func (b *Builder) ExportVar(name string, localIndex int) {
	b.syms = append(b.syms, loader.Symbol{Kind: loader.SymVar, Name: name, Index: localIndex})
}

// RefFunc records a symbolic relocation of kind which (RelocArg1 or
// RelocArg2) against the instruction at codeIndex, resolved at link time
// against another module's ExportFunc'd name.
func (b *Builder) RefFunc(codeIndex int, name string, which loader.RelocKind) {
	b.reloc(codeIndex, name, loader.TargetFun, loader.SymFunc, which)
}

// RefVar is RefFunc for a global-variable reference.
func (b *Builder) RefVar(codeIndex int, name string, which loader.RelocKind) {
	b.reloc(codeIndex, name, loader.TargetVar, loader.SymVar, which)
}

func (b *Builder) reloc(codeIndex int, name string, target loader.RelocTarget, symKind loader.SymbolKind, which loader.RelocKind) {
	symIdx := uint32(len(b.syms))
	b.syms = append(b.syms, loader.Symbol{Kind: symKind, Name: name})
	b.relocs = append(b.relocs, loader.Relocation{
		Kind: which, Symbolic: true, SymbolIndex: symIdx, Target: target, CodeIndex: codeIndex,
	})
}

// Build lays out every function's code at its own address in one combined
// stream and returns the *loader.Module ready for loader.Link.
func (b *Builder) Build() *loader.Module {
	flags := b.Flags
	hasInfos := false
	for _, f := range b.funs {
		if f.Info != nil {
			hasInfos = true
		}
	}
	if hasInfos {
		flags |= loader.FlagFunInfos
	}
	m := &loader.Module{
		Header: loader.Header{
			Magic:         loader.Magic,
			Flags:         flags,
			EntryFunIndex: uint32(b.Entry),
			FunCount:      uint32(len(b.funs)),
		},
	}
	for _, f := range b.funs {
		addr := uint32(len(m.Code))
		m.Functions = append(m.Functions, loader.RawFunction{
			Address: addr, ArgCount: uint32(f.ArgCount), InstrCount: uint32(len(f.Code)),
		})
		m.Code = append(m.Code, f.Code...)
		info := env.FunInfo{ResultKind: value.KindInt}
		if f.Info != nil {
			info = *f.Info
			hasInfos = true
		}
		m.FunInfos = append(m.FunInfos, info)
	}
	if !hasInfos {
		m.FunInfos = nil
	}
	for _, v := range b.vars {
		m.Vars = append(m.Vars, loader.NewRawVar(v))
	}
	m.Symbols = b.syms
	m.Relocs = b.relocs
	return m
}
