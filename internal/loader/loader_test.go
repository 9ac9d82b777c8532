// Copyright 2024 The letin Authors
// This file is part of letin.

package loader

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

// moduleBuilder assembles a module image by hand, mirroring the section
// order Parse expects, for tests that don't want to hand-roll binary.Write
// calls at every call site.
type moduleBuilder struct {
	buf   bytes.Buffer
	flags Flag

	entry               uint32
	funs                []RawFunction
	vars                []wireValue
	code                []opcode.Instruction
	data                []RawObject
	relocs              []Relocation
	syms                []Symbol
	funInfoStrategy     []uint8
	funInfoResultKind   []uint8
}

func (b *moduleBuilder) addFunction(address, argCount, instrCount uint32) {
	b.funs = append(b.funs, RawFunction{Address: address, ArgCount: argCount, InstrCount: instrCount})
}

func (b *moduleBuilder) addIntVar(v int64) { b.vars = append(b.vars, wireValue{Kind: value.KindInt, I: v}) }

func (b *moduleBuilder) addInstr(in opcode.Instruction) { b.code = append(b.code, in) }

func (b *moduleBuilder) addFuncSymbol(name string, localIndex int) {
	b.syms = append(b.syms, Symbol{Kind: SymFunc, Name: name, Index: localIndex})
}

func (b *moduleBuilder) addVarSymbol(name string, localIndex int) {
	b.syms = append(b.syms, Symbol{Kind: SymVar, Name: name, Index: localIndex})
}

func (b *moduleBuilder) addArg1Reloc(codeIndex int, symbolName string, target RelocTarget) {
	symIdx := uint32(len(b.syms))
	b.syms = append(b.syms, Symbol{Kind: symKindForTarget(target), Name: symbolName, Index: 0})
	b.relocs = append(b.relocs, Relocation{
		Kind: RelocArg1, Symbolic: true, SymbolIndex: symIdx, Target: target, CodeIndex: codeIndex,
	})
}

func symKindForTarget(t RelocTarget) SymbolKind {
	switch t {
	case TargetFun:
		return SymFunc
	case TargetVar:
		return SymVar
	default:
		return SymNativeFunc
	}
}

func writeUint32(w *bytes.Buffer, v uint32) { binary.Write(w, binary.BigEndian, v) }
func writeUint16(w *bytes.Buffer, v uint16) { binary.Write(w, binary.BigEndian, v) }
func writeUint8(w *bytes.Buffer, v uint8)   { binary.Write(w, binary.BigEndian, v) }
func writeInt32(w *bytes.Buffer, v int32)   { binary.Write(w, binary.BigEndian, v) }
func writeInt64(w *bytes.Buffer, v int64)   { binary.Write(w, binary.BigEndian, v) }

func writeWireValue(w *bytes.Buffer, v wireValue) {
	writeUint8(w, uint8(v.Kind))
	switch v.Kind {
	case value.KindInt:
		writeInt64(w, v.I)
	case value.KindFloat:
		bits := uint64(0)
		_ = bits // placeholder kept simple: tests only exercise int vars/consts
	case value.KindRef:
		writeInt32(w, int32(v.I))
	}
}

// build serializes the module per Parse's expected layout.
func (b *moduleBuilder) build(entryFunIndex uint32, hasFunInfos bool) []byte {
	var out bytes.Buffer
	out.Write(Magic[:])
	writeUint32(&out, uint32(b.flags))
	writeUint32(&out, entryFunIndex)
	writeUint32(&out, uint32(len(b.funs)))
	writeUint32(&out, uint32(len(b.vars)))
	writeUint32(&out, uint32(len(b.code)))
	writeUint32(&out, uint32(len(b.data)))
	writeUint32(&out, uint32(len(b.relocs)))
	writeUint32(&out, uint32(len(b.syms)))
	funInfoCount := uint32(0)
	if hasFunInfos {
		funInfoCount = uint32(len(b.funs))
	}
	writeUint32(&out, funInfoCount)
	writeUint32(&out, 0) // reserved

	for _, fn := range b.funs {
		writeUint32(&out, fn.Address)
		writeUint32(&out, fn.ArgCount)
		writeUint32(&out, fn.InstrCount)
	}
	for _, v := range b.vars {
		writeWireValue(&out, v)
	}
	for _, in := range b.code {
		words, err := opcode.Encode(in)
		if err != nil {
			panic(err)
		}
		for _, w := range words {
			writeUint32(&out, uint32(w))
		}
	}
	// no data objects in these tests' builder usage beyond what's appended directly
	for range b.data {
		// not exercised by current tests
	}
	for _, rel := range b.relocs {
		writeUint8(&out, uint8(rel.Kind))
		if rel.Symbolic {
			writeUint8(&out, 1)
		} else {
			writeUint8(&out, 0)
		}
		writeUint32(&out, rel.SymbolIndex)
		writeInt32(&out, rel.LocalIndex)
		writeUint8(&out, uint8(rel.Target))
		writeInt32(&out, int32(rel.CodeIndex))
		writeInt32(&out, int32(rel.VarIndex))
		writeInt32(&out, int32(rel.ObjIndex))
		writeInt32(&out, int32(rel.ElemIndex))
	}
	for _, sym := range b.syms {
		writeUint8(&out, uint8(sym.Kind))
		writeUint32(&out, uint32(len(sym.Name)))
		out.WriteString(sym.Name)
		writeInt32(&out, int32(sym.Index))
	}
	if hasFunInfos {
		for range b.funs {
			writeUint8(&out, 0) // StrategyFlags zero value
			writeUint8(&out, uint8(value.KindInt))
		}
	}
	return out.Bytes()
}

func TestParseRoundTripsSimpleModule(t *testing.T) {
	b := &moduleBuilder{}
	b.addFunction(0, 2, 1)
	b.addInstr(opcode.Instruction{
		Instr: opcode.RET, Op: opcode.IADD,
		Arg1: opcode.Arg{Type: opcode.ArgArg, Value: 0},
		Arg2: opcode.Arg{Type: opcode.ArgArg, Value: 1},
	})
	b.addIntVar(42)
	b.flags = FlagLibrary

	raw := b.build(0, false)
	m, lerr := Parse(bytes.NewReader(raw))
	if lerr != nil {
		t.Fatalf("Parse: %v", lerr)
	}
	if len(m.Functions) != 1 || m.Functions[0].ArgCount != 2 {
		t.Fatalf("Functions = %+v", m.Functions)
	}
	if len(m.Code) != 1 || m.Code[0].Instr != opcode.RET || m.Code[0].Op != opcode.IADD {
		t.Fatalf("Code = %+v", m.Code)
	}
	if len(m.Vars) != 1 || m.Vars[0].Value.Kind != value.KindInt || m.Vars[0].Value.I != 42 {
		t.Fatalf("Vars = %+v", m.Vars)
	}
}

func TestLinkSingleModuleWithEntry(t *testing.T) {
	b := &moduleBuilder{}
	b.addFunction(0, 2, 1)
	b.addInstr(opcode.Instruction{
		Instr: opcode.RET, Op: opcode.IADD,
		Arg1: opcode.Arg{Type: opcode.ArgArg, Value: 0},
		Arg2: opcode.Arg{Type: opcode.ArgArg, Value: 1},
	})
	b.addFuncSymbol("main", 0)
	raw := b.build(0, false) // FlagLibrary unset -> this module declares the entry

	m, lerr := Parse(bytes.NewReader(raw))
	if lerr != nil {
		t.Fatalf("Parse: %v", lerr)
	}

	collector := gc.New(nil)
	result := Link(collector, []*Module{m}, nil)
	if !result.OK {
		t.Fatalf("Link errors: %+v", result.Errors)
	}
	if !result.Env.HasEntry || result.Env.EntryIndex != 0 {
		t.Fatalf("entry = %+v", result.Env)
	}
	idx, ok := result.Env.LookupFunByName("main")
	if !ok || idx != 0 {
		t.Fatalf("LookupFunByName(main) = %d,%v", idx, ok)
	}
}

func TestLinkResolvesCrossModuleFunctionSymbol(t *testing.T) {
	// Module 0 (library): defines "helper" at local index 0.
	lib := &moduleBuilder{flags: FlagLibrary}
	lib.addFunction(0, 1, 1)
	lib.addInstr(opcode.Instruction{Instr: opcode.RET, Op: opcode.NOP, Arg1: opcode.Arg{Type: opcode.ArgArg, Value: 0}})
	lib.addFuncSymbol("helper", 0)
	libRaw := lib.build(0, false)
	libMod, lerr := Parse(bytes.NewReader(libRaw))
	if lerr != nil {
		t.Fatalf("Parse(lib): %v", lerr)
	}

	// Module 1 (entry): calls "helper" via a symbolic RCALL relocation.
	main := &moduleBuilder{flags: FlagRelocatable}
	main.addFunction(0, 1, 1)
	main.addInstr(opcode.Instruction{Instr: opcode.LET, Op: opcode.RCALL, Arg1: opcode.Arg{Type: opcode.ArgImmediate, Value: 0}})
	main.addArg1Reloc(0, "helper", TargetFun)
	main.addFuncSymbol("main", 0)
	mainRaw := main.build(0, false)
	mainMod, lerr := Parse(bytes.NewReader(mainRaw))
	if lerr != nil {
		t.Fatalf("Parse(main): %v", lerr)
	}

	collector := gc.New(nil)
	result := Link(collector, []*Module{libMod, mainMod}, nil)
	if !result.OK {
		t.Fatalf("Link errors: %+v", result.Errors)
	}
	// "helper" is module 0's function 0 -> combined index 0; "main" is
	// module 1's function 0 -> combined index 1 (after lib's one function).
	helperIdx, _ := result.Env.LookupFunByName("helper")
	mainIdx, _ := result.Env.LookupFunByName("main")
	if helperIdx != 0 || mainIdx != 1 {
		t.Fatalf("helper=%d main=%d, want 0,1", helperIdx, mainIdx)
	}
	patched := result.Env.Code[result.Env.Functions[mainIdx].CodeOffset]
	if patched.Arg1.Value != int32(helperIdx) {
		t.Fatalf("relocated Arg1.Value = %d, want %d", patched.Arg1.Value, helperIdx)
	}
}

func TestLinkReportsUnresolvedSymbol(t *testing.T) {
	main := &moduleBuilder{flags: FlagRelocatable}
	main.addFunction(0, 0, 1)
	main.addInstr(opcode.Instruction{Instr: opcode.LET, Op: opcode.RCALL, Arg1: opcode.Arg{Type: opcode.ArgImmediate, Value: 0}})
	main.addArg1Reloc(0, "missing", TargetFun)
	raw := main.build(0, false)
	m, lerr := Parse(bytes.NewReader(raw))
	if lerr != nil {
		t.Fatalf("Parse: %v", lerr)
	}

	collector := gc.New(nil)
	result := Link(collector, []*Module{m}, nil)
	if result.OK {
		t.Fatalf("Link should have failed on an unresolved symbol")
	}
	if len(result.Errors) != 1 || len(result.Errors[0].Errors) != 1 || result.Errors[0].Errors[0].Code != LoadNoFunSym {
		t.Fatalf("Errors = %+v", result.Errors)
	}
}

func TestCacheAvoidsReparsing(t *testing.T) {
	b := &moduleBuilder{flags: FlagLibrary}
	b.addFunction(0, 0, 1)
	b.addInstr(opcode.Instruction{Instr: opcode.RET, Op: opcode.NOP, Arg1: opcode.Arg{Type: opcode.ArgImmediate, Value: 7}})
	raw := b.build(0, false)

	cache := NewCache(1024 * 1024)
	m1, lerr := ParseCached(cache, raw)
	if lerr != nil {
		t.Fatalf("ParseCached(1): %v", lerr)
	}
	m2, lerr := ParseCached(cache, raw)
	if lerr != nil {
		t.Fatalf("ParseCached(2): %v", lerr)
	}
	if len(m1.Code) != len(m2.Code) {
		t.Fatalf("cached module mismatch: %+v vs %+v", m1.Code, m2.Code)
	}
}
