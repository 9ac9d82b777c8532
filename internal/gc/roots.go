// Copyright 2024 The letin Authors
// This file is part of letin.

package gc

import "github.com/letin-run/letin/internal/value"

// RootProvider is implemented by subsystems that hold references the
// collector would otherwise not discover by walking thread registers and
// the global-variable table — chiefly the evaluation strategy's
// memoization tables, which are reachable only through their own internal
// bookkeeping.
type RootProvider interface {
	TraverseRootObjects(push func(*value.Object))
}

// RootProviderFunc adapts a plain function to RootProvider.
type RootProviderFunc func(push func(*value.Object))

func (f RootProviderFunc) TraverseRootObjects(push func(*value.Object)) { f(push) }

// GlobalVarTable is implemented by the environment so the collector can
// enumerate the global-variable roots without importing package env (which
// in turn imports package value but must not import package gc).
type GlobalVarTable interface {
	NumVars() int
	VarAt(i int) value.Value
}

func collectRoot(v value.Value, push func(*value.Object)) {
	if v.IsReference() && v.Ref != nil {
		push(v.Ref)
	}
}

// pushRootsFromThread enumerates the roots owned by one thread context:
// its live stack slots, rv, tmp_r, tmp_ptr (the allocation-in-flight
// pointer, treated as unconditionally reachable while non-nil), and every
// object currently registered in tempRoots.
func pushRootsFromThread(t *ThreadContext, push func(*value.Object)) {
	for i := 0; i < t.Sec && i < len(t.Stack); i++ {
		collectRoot(t.Stack[i], push)
	}
	collectRoot(t.Rv, push)
	collectRoot(t.TmpR, push)
	if t.TmpPtr != nil {
		push(t.TmpPtr)
	}
	t.tempRootsMu.Lock()
	for _, o := range t.tempRoots {
		push(o)
	}
	t.tempRootsMu.Unlock()
}
