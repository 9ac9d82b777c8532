// Copyright 2024 The letin Authors
// This file is part of letin.

// Package letin wires the loader, garbage collector, evaluation strategies,
// native-function bridge, and interpreter into one runnable VM, and exposes
// the start contract a driver program (cmd/letinvm) or test harness uses to
// run a linked program to completion.
package letin

import (
	"github.com/letin-run/letin/internal/config"
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/interp"
	"github.com/letin-run/letin/internal/loader"
	"github.com/letin-run/letin/internal/value"
	"github.com/letin-run/letin/internal/xlog"
)

// VM owns a linked environment and everything needed to run it: the
// collector, the interpreter (itself owning the evaluation strategies), and
// the native-function bridge that produced NativeFunSymbols during linking.
// Constructed with New from an already-produced loader.LinkResult, mirroring
// probe-lang/lang/vm.VM's New(code, constants, gasLimit) shape — here the
// analogous inputs are a linked environment plus the runtime's tunables.
type VM struct {
	Env       *loader.LinkResult
	Collector *gc.Collector
	Interp    *interp.Interp
	Native    interp.NativeHandler
}

// New builds a VM from a successful link result. native may be nil for a
// program that makes no native calls. cfg supplies the memoization cache
// capacity (config.Default() if nil); New reads no other field of it.
func New(link *loader.LinkResult, collector *gc.Collector, native interp.NativeHandler, cfg *config.Config) (*VM, *errs.RuntimeError) {
	if !link.OK || link.Env == nil {
		return nil, errs.New(errs.NoEntry)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	collector.AddVMContext(link.Env)

	ip := interp.New(link.Env, collector, native, false, false, cfg.MemoCacheCapacity)
	collector.RegisterRootProvider(ip.MemoRootProvider())

	return &VM{Env: link, Collector: collector, Interp: ip, Native: native}, nil
}

// Start implements the start contract (§4.5/§9 "Start contract"):
// it allocates an immortal root holding args, spawns a fresh thread
// context, invokes the entry function, and finally calls callback with the
// result before the thread context is unregistered. If the entry function
// takes len(args)+1 arguments, the caller is expected to have already
// appended a unique IO token as the final argument; Start itself does not
// fabricate one, since only the caller knows whether the program expects
// the two-argument IO-threading signature.
func (vm *VM) Start(stackSize int, args []value.Value, callback func(value.Value, *errs.RuntimeError)) {
	if !vm.Env.Env.HasEntry {
		callback(value.Value{}, errs.New(errs.NoEntry))
		return
	}
	if stackSize <= 0 {
		stackSize = 1 << 16
	}

	// Per the start contract, args are held by an immortal root object for
	// the duration of the run: tracing it keeps every argument (and, for the
	// two-argument IO signature, the IO token itself) reachable from the
	// moment Start is called, not only once invoke's frame-push makes them
	// reachable from the thread's own stack. It carries FlagInternal, the
	// same marker hash_table/hash_table_entry use, since it is VM bookkeeping
	// rather than a program-visible object (so it is built directly rather
	// than through the native setters' CheckStoreIntoShared guard, which
	// would otherwise reject the unique IO token StartWithIO appends).
	argsHolder := append([]value.Value{}, args...)
	vm.Collector.AllocateImmortal(func() *value.Object {
		o := value.NewRArray(argsHolder)
		o.Flags |= value.FlagInternal
		return o
	})

	ctx := gc.NewThreadContext(stackSize)
	vm.Collector.AddThreadContext(ctx)
	defer vm.Collector.RemoveThreadContext(ctx)

	xlog.Debug("letin: start", "entry", vm.Env.Env.EntryIndex, "argc", len(args))
	result, rerr := vm.Interp.Invoke(ctx, vm.Env.Env.EntryIndex, args)
	if rerr != nil {
		xlog.Warn("letin: entry failed", "code", rerr.Code, "detail", rerr.Detail)
	}
	callback(result, rerr)
}

// StartWithIO is Start specialized for the two-argument entry signature
// (§9 "Start contract"): it appends a fresh unique IO token as the final
// argument and expects the entry to return a unique tuple
// (int exit_status, unique io).
func (vm *VM) StartWithIO(stackSize int, args []value.Value, callback func(value.Value, *errs.RuntimeError)) {
	io := vm.Collector.AllocateImmortal(func() *value.Object { return value.NewIO() })
	full := append(append([]value.Value{}, args...), value.RefValue(io))
	vm.Start(stackSize, full, callback)
}
