// Copyright 2024 The letin Authors
// This file is part of letin.

// Package interp implements the letin bytecode interpreter: instruction
// dispatch, the call/return and tail-call (RETRY) frame discipline, and
// try/throw exception unwinding, driven over an environment produced by
// package loader and an evaluation strategy from package eval.
package interp

import (
	"github.com/letin-run/letin/internal/env"
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/eval"
	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/opcode"
	"github.com/letin-run/letin/internal/value"
)

// NativeHandler dispatches a native-function call by index (§4.6). It is
// supplied by package native; interp depends only on this narrow interface
// so the two packages do not import each other.
type NativeHandler interface {
	Call(handlerIndex int, args []value.Value, rt *ThreadRuntime) (value.Value, *errs.RuntimeError)
}

// Interp owns everything needed to run bytecode over a linked environment:
// the environment itself, the collector, the default evaluation strategy
// (each function may still override it via its function-info annotation),
// and the native-function bridge.
type Interp struct {
	Env    *env.Environment
	GC     *gc.Collector
	Native NativeHandler

	eager     eval.Eager
	lazy      *eval.Lazy
	memo      *eval.Memo
	composite *eval.Composite

	defaultLazy bool
	defaultMemo bool
}

// New returns an Interp with the given VM-wide default strategy (lazy/memo
// bits) and memoization cache capacity. The returned Interp's memo strategy
// is registered as a gc.RootProvider by the caller (typically the letin
// package wiring the whole VM together), since only the caller holds the
// *gc.Collector at construction time in the right order.
func New(e *env.Environment, collector *gc.Collector, native NativeHandler, defaultLazy, defaultMemo bool, memoCapacity int) *Interp {
	return &Interp{
		Env:         e,
		GC:          collector,
		Native:      native,
		lazy:        eval.NewLazy(),
		memo:        eval.NewMemo(memoCapacity),
		composite:   eval.NewComposite(),
		defaultLazy: defaultLazy,
		defaultMemo: defaultMemo,
	}
}

// MemoRootProvider exposes the memoization strategy's GC root hook so the
// caller can register it with the collector.
func (ip *Interp) MemoRootProvider() gc.RootProvider { return rootProviderFunc(ip.memo.TraverseRootObjects) }

type rootProviderFunc func(push func(*value.Object))

func (f rootProviderFunc) TraverseRootObjects(push func(*value.Object)) { f(push) }

func (ip *Interp) strategyFor(info env.FunInfo) eval.Strategy {
	lazy := ip.defaultLazy
	memo := ip.defaultMemo
	if info.Strategy.Has(env.StrategyEager) {
		lazy, memo = false, false
	}
	if info.Strategy.Has(env.StrategyLazy) || info.Strategy.Has(env.StrategyOnlyLazy) {
		lazy = true
	}
	if info.Strategy.Has(env.StrategyMemoized) || info.Strategy.Has(env.StrategyOnlyMemoized) {
		memo = true
	}
	if info.Strategy.Has(env.StrategyUnmemoized) {
		memo = false
	}
	switch {
	case lazy && memo:
		return ip.composite
	case lazy:
		return ip.lazy
	case memo:
		return ip.memo
	default:
		return ip.eager
	}
}

// forceInvokerFor returns the Invoker Force should use to run funIndex's
// body: a plain recursive call into the interpreter, or — for a
// composite-strategy function — one that also consults the memo table,
// since composite memoizes at force time rather than at thunk-build time.
func (ip *Interp) forceInvokerFor(ctx *gc.ThreadContext, funIndex int) eval.Invoker {
	rt := ip.threadRuntime(ctx)
	info := ip.Env.FunInfoFor(funIndex)
	if ip.strategyIsComposite(info) {
		return eval.MemoizingInvoker{Inner: rt, Memo: ip.memo, Alloc: rt}
	}
	return rt
}

func (ip *Interp) strategyIsComposite(info env.FunInfo) bool {
	_, ok := ip.strategyFor(info).(*eval.Composite)
	return ok
}

// ThreadRuntime adapts one thread context into the eval.Runtime interface
// (Allocate + Invoke bound to that context), and is also handed to native
// functions so they can allocate results and force arguments.
type ThreadRuntime struct {
	ip  *Interp
	ctx *gc.ThreadContext
}

func (ip *Interp) threadRuntime(ctx *gc.ThreadContext) *ThreadRuntime {
	return &ThreadRuntime{ip: ip, ctx: ctx}
}

// NewThreadRuntime exposes threadRuntime to callers outside this package —
// chiefly package native's tests, and any native library wanting to drive a
// native call the same way the interpreter itself does.
func (ip *Interp) NewThreadRuntime(ctx *gc.ThreadContext) *ThreadRuntime {
	return ip.threadRuntime(ctx)
}

func (r *ThreadRuntime) Allocate(build func() *value.Object) (*value.Object, *errs.RuntimeError) {
	return r.ip.GC.Allocate(r.ctx, build)
}

// RegisterRoot links obj into this thread's temporary-root list (spec.md §9
// "Reference ownership"): use this in native bridge code that allocates more
// than one object before folding them into the value finally returned, so a
// collection racing between two Allocate calls cannot reclaim the earlier
// one. The returned RegisteredRef must be released once obj is either
// reachable some other way (stored into the final result) or abandoned.
func (r *ThreadRuntime) RegisterRoot(obj *value.Object) *gc.RegisteredRef {
	return r.ctx.Register(obj)
}

func (r *ThreadRuntime) Invoke(funIndex int, args []value.Value) (value.Value, *errs.RuntimeError) {
	return r.ip.invoke(r.ctx, funIndex, args)
}

// Force walks v to its underlying value, forcing through the right invoker
// for the referenced thunk's function.
func (r *ThreadRuntime) Force(v value.Value) (value.Value, *errs.RuntimeError) {
	if !v.IsLazy() {
		return v, nil
	}
	funIndex := v.Ref.Lazy.FunIndex
	return eval.Force(v, r.ip.forceInvokerFor(r.ctx, funIndex))
}

// instruction is a small alias so other files in this package do not need
// to import opcode directly for the Instruction type.
type instruction = opcode.Instruction
