// Copyright 2024 The letin Authors
// This file is part of letin.

package env

import (
	"sync"

	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

// Environment is the combined, linked result the loader produces from one or
// more modules (§4.5 "Linking"): a single flat function table, variable
// table, function-info table, and instruction stream, plus the symbol maps
// needed for by-name lookup (§6 "Environment symbol lookup").
type Environment struct {
	Functions []Function
	FunInfos  []FunInfo // parallel to Functions; zero value means default strategy
	Code      []opcode.Instruction

	// Vars holds the global-variable table: each loaded module contributes a
	// contiguous range, and relocations rewrite symbolic variable references
	// to their final index in this slice.
	Vars []value.Value

	// Consts holds the module's constant pool: an ArgImmediate argument whose
	// value exceeds a plain small-int literal (a float, or a reference to
	// literal array/tuple data built at load time) indexes here instead of
	// carrying its payload directly in the 32-bit argument word.
	Consts []value.Value
	// varsMu guards Vars: both the Var/VarAt reads and the SetVar writes
	// take it.
	varsMu sync.Mutex

	// FunSymbols and VarSymbols map exported symbol names to their final
	// index in Functions/Vars, built during linking's first pass.
	FunSymbols map[string]int
	VarSymbols map[string]int

	// NativeFunSymbols maps an exported native-function symbol name to the
	// handler index within the VM's native-function handler (§4.6, §6
	// "Native library boundary").
	NativeFunSymbols map[string]int

	// EntryIndex is the function index to invoke on start; valid only when
	// HasEntry is true (§4.5 "Entry").
	EntryIndex int
	HasEntry   bool

	// Immortal lists every object allocated with allocate_immortal: storage
	// for program literals and other environment-owned data, never swept
	// (§4.4 "Allocation", §3 invariant 4).
	Immortal []*value.Object
}

// New returns an empty Environment ready to be populated by the loader.
func New() *Environment {
	return &Environment{
		FunSymbols:       make(map[string]int),
		VarSymbols:       make(map[string]int),
		NativeFunSymbols: make(map[string]int),
	}
}

// LookupFunByName resolves a function by its exported symbol name.
func (e *Environment) LookupFunByName(name string) (int, bool) {
	i, ok := e.FunSymbols[name]
	return i, ok
}

// LookupVarByName resolves a global variable by its exported symbol name.
func (e *Environment) LookupVarByName(name string) (int, bool) {
	i, ok := e.VarSymbols[name]
	return i, ok
}

// FunInfoFor returns the function-info entry for funIndex, or the zero value
// (default strategy, KindError result) if the module carried no
// function-info table.
func (e *Environment) FunInfoFor(funIndex int) FunInfo {
	if funIndex < 0 || funIndex >= len(e.FunInfos) {
		return FunInfo{}
	}
	return e.FunInfos[funIndex]
}

// SetVar atomically overwrites a global-variable slot, serializing against
// concurrent readers that might otherwise observe a torn write (§4.1
// "Mutation during GC" applies equally to the global table).
func (e *Environment) SetVar(index int, v value.Value) {
	e.varsMu.Lock()
	e.Vars[index] = v
	e.varsMu.Unlock()
}

// Var reads a global-variable slot.
func (e *Environment) Var(index int) value.Value {
	e.varsMu.Lock()
	v := e.Vars[index]
	e.varsMu.Unlock()
	return v
}

// AddImmortal registers obj as environment-owned and never swept.
func (e *Environment) AddImmortal(obj *value.Object) {
	e.Immortal = append(e.Immortal, obj)
}

// NumVars and VarAt implement gc.GlobalVarTable so the collector can
// enumerate the global-variable table as a root set without this package
// importing package gc.
func (e *Environment) NumVars() int { return len(e.Vars) }

func (e *Environment) VarAt(i int) value.Value { return e.Var(i) }
