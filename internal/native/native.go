// Copyright 2024 The letin Authors
// This file is part of letin.

// Package native implements the native-function bridge (§4.6): a registry
// mapping names to host Go functions, and a small algebra of checkers,
// converters, and setters a native function body composes to validate
// arguments, extract plain host values, and build result values without
// ever touching a lazy or wrongly-typed value.
//
// There is no direct teacher precedent for this bridge's shape —
// probe-lang's stdlib packages (math, crypto, agent) are plain Go functions
// called directly by the compiler's codegen, never through an argument-list
// + checker/converter/setter boundary — so this package is grounded
// directly on spec.md §4.6's description of the algebra, with
// probe-lang/stdlib/math as the model for what a concrete library function
// built on top of it looks like (see nlib/coreutil).
package native

import (
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/interp"
	"github.com/letin-run/letin/internal/value"
)

// Func is one native function's body: args have already been popped off the
// pending-argument region by the interpreter but are not yet checked —
// forcing and shape validation is the function's own job, via the checkers
// in check.go.
type Func func(args []value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError)

// namedFunc pairs a Func with the name it was registered under, so Symbols
// can report it and error messages can name the failing function.
type namedFunc struct {
	name string
	fn   Func
}

// Registry implements interp.NativeHandler: a flat, append-only table of
// named host functions, indexed exactly as the loader's NativeFunSymbols map
// and a module's INCALL/FNCALL/RNCALL instructions expect (§4.5, §4.6).
type Registry struct {
	funcs []namedFunc
	index map[string]int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register binds name to fn and returns its handler index. Registering the
// same name twice panics: the registry is built once, at VM construction
// time, by trusted host code — not from untrusted module data, where a
// duplicate would instead be a reported LoadError.
func (r *Registry) Register(name string, fn Func) int {
	if _, dup := r.index[name]; dup {
		panic("native: duplicate registration for " + name)
	}
	idx := len(r.funcs)
	r.funcs = append(r.funcs, namedFunc{name: name, fn: fn})
	r.index[name] = idx
	return idx
}

// Symbols returns the name-to-handler-index map this registry has built so
// far, for seeding loader.Link's nativeSymbols argument.
func (r *Registry) Symbols() map[string]int {
	out := make(map[string]int, len(r.index))
	for name, idx := range r.index {
		out[name] = idx
	}
	return out
}

// Call implements interp.NativeHandler.
func (r *Registry) Call(handlerIndex int, args []value.Value, rt *interp.ThreadRuntime) (value.Value, *errs.RuntimeError) {
	if handlerIndex < 0 || handlerIndex >= len(r.funcs) {
		return value.Value{}, errs.New(errs.NoNativeFun)
	}
	return r.funcs[handlerIndex].fn(args, rt)
}
