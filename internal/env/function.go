// Copyright 2024 The letin Authors
// This file is part of letin.

// Package env implements the letin environment: the linked function table,
// global-variable table, function-info table, symbol maps, and immortal
// heap objects produced by the loader and consulted by the interpreter
// (§2 "Data flow", §4.5, §6 "Environment symbol lookup").
package env

import "github.com/letin-run/letin/internal/value"

// Function describes one loaded function: its code offset within the
// environment's combined instruction stream, its declared argument count,
// and the instruction count of its body (§4.5 "function table").
type Function struct {
	CodeOffset int
	ArgCount   int
	InstrCount int
}

// StrategyFlags records a function's per-function evaluation-strategy
// annotation (§4.3 "Per-function annotations"), overriding the VM-wide
// default strategy at load time.
type StrategyFlags uint8

const (
	// StrategyEager forces eager evaluation for this function regardless of
	// the VM-wide default.
	StrategyEager StrategyFlags = 1 << iota
	// StrategyLazy forces thunk-building on entry.
	StrategyLazy
	// StrategyMemoized enables the memoization cache for this function.
	StrategyMemoized
	// StrategyUnmemoized disables memoization even if the VM default enables
	// it.
	StrategyUnmemoized
	// StrategyOnlyLazy forces lazy evaluation regardless of the VM-wide
	// default; the interpreter's strategy selection treats it the same as
	// StrategyLazy.
	StrategyOnlyLazy
	// StrategyOnlyMemoized forces memoization regardless of the VM-wide
	// default, mirroring StrategyOnlyLazy for the memo axis.
	StrategyOnlyMemoized
)

func (f StrategyFlags) Has(bit StrategyFlags) bool { return f&bit != 0 }

// FunInfo is one entry of the function-info table (§4.5 "function-info
// table", populated only when the FUN_INFOS header flag is set): the
// function's evaluation-strategy annotation and its declared result
// value-kind. The interpreter passes ResultKind to the evaluation
// strategies in eval.Call; the ICALL/FCALL/RCALL dispatch does not check it
// against the call site.
type FunInfo struct {
	Strategy   StrategyFlags
	ResultKind value.Kind
}
