// Copyright 2024 The letin Authors
// This file is part of letin.

// Package gc implements the letin mark-and-sweep garbage collector: thread
// contexts and their register roots, stop-the-world quiescence, explicit
// worklist marking, one-pass sweep, allocation, and the fork-handler
// registry (§4.4, §5).
package gc

import (
	"sync"
	"sync/atomic"

	"github.com/letin-run/letin/internal/value"
)

// ThreadContext holds the interpreter's per-thread register file together
// with the quiescence channels the collector uses to park/resume it.
type ThreadContext struct {
	Abp           int // argument-base pointer
	Ac            int // argument count since the last call
	Abp2          int // pending argument-base pointer
	Ac2           int // pending argument count
	Sec           int // stack-element count; roots are Stack[0:Sec]
	LocalVarCount int // local-variable count within the current let-block
	IP            int // instruction pointer

	Rv     value.Value   // return-value slot
	TmpR   value.Value   // GC temporary-reference slot
	TmpPtr *value.Object // allocation-in-flight pointer; set by Allocate to the object it links, kept until the next Allocate

	Stack []value.Value

	// tempRoots is the per-thread registered-reference list (spec.md §9
	// "Reference ownership"): short-lived references a native function
	// holds across more than one allocation, before any of them is stored
	// in a properly traced slot. Register and RegisteredRef.Release below are
	// its only mutators; pushRootsFromThread traces every entry as a root.
	tempRootsMu sync.Mutex
	tempRoots   []*value.Object

	quiesceRequested atomic.Bool
	parked           chan struct{}
	resume           chan struct{}
}

// NewThreadContext returns a fresh ThreadContext with the given stack
// capacity (§4.2 "Stack").
func NewThreadContext(stackSize int) *ThreadContext {
	return &ThreadContext{
		Stack:  make([]value.Value, stackSize),
		parked: make(chan struct{}, 1),
		resume: make(chan struct{}),
	}
}

// Safepoint is called by the interpreter between instructions. If the
// collector has requested quiescence, it parks the calling goroutine until
// Collect finishes. A registered thread that stops calling Safepoint
// without first unregistering via Collector.RemoveThreadContext will hang
// the next Collect indefinitely.
func (t *ThreadContext) Safepoint() {
	if !t.quiesceRequested.Load() {
		return
	}
	t.parked <- struct{}{}
	<-t.resume
}

// RegisteredRef is one entry in a thread's temporary-root list: a reference
// native bridge code holds across more than one allocation, registered so a
// collection in between cannot reclaim it before it is stored anywhere else
// reachable. Release removes it; callers must release every RegisteredRef
// they obtain, typically once the object has been folded into the value
// handed back to the interpreter (or discarded on an error path).
type RegisteredRef struct {
	ctx *ThreadContext
	obj *value.Object
}

// Register links obj into t's temporary-root list.
func (t *ThreadContext) Register(obj *value.Object) *RegisteredRef {
	t.tempRootsMu.Lock()
	t.tempRoots = append(t.tempRoots, obj)
	t.tempRootsMu.Unlock()
	return &RegisteredRef{ctx: t, obj: obj}
}

// Release unregisters r's object from its thread's temporary-root list.
func (r *RegisteredRef) Release() {
	t := r.ctx
	t.tempRootsMu.Lock()
	defer t.tempRootsMu.Unlock()
	for i, o := range t.tempRoots {
		if o == r.obj {
			t.tempRoots = append(t.tempRoots[:i], t.tempRoots[i+1:]...)
			return
		}
	}
}
