// Copyright 2024 The letin Authors
// This file is part of letin.

package gc

import "sort"

// ForkHandler is a fork-safe participant: Prepare is called before fork (and
// must acquire whatever lock keeps its subsystem's invariants consistent
// across the fork), ParentAfter/ChildAfter are called after fork in the
// parent/child respectively (and must release that lock).
type ForkHandler struct {
	Priority    int
	Name        string
	Prepare     func()
	ParentAfter func()
	ChildAfter  func()
}

// ForkRegistry holds the priority-ordered list of fork-safe callbacks
// (allocator, GC, internal, eval-strategy, native-fun, VM, in ascending
// priority) consulted around a fork() call.
type ForkRegistry struct {
	handlers []ForkHandler
}

// NewForkRegistry returns an empty registry.
func NewForkRegistry() *ForkRegistry { return &ForkRegistry{} }

// Register adds h to the registry; handlers run in ascending Priority order
// before fork and descending order after.
func (r *ForkRegistry) Register(h ForkHandler) {
	r.handlers = append(r.handlers, h)
	sort.SliceStable(r.handlers, func(i, j int) bool {
		return r.handlers[i].Priority < r.handlers[j].Priority
	})
}

// BeforeFork runs every handler's Prepare in ascending priority order, each
// taking its lock. Call this immediately before invoking fork.
func (r *ForkRegistry) BeforeFork() {
	for _, h := range r.handlers {
		if h.Prepare != nil {
			h.Prepare()
		}
	}
}

// AfterForkParent releases locks in descending priority order in the
// parent process.
func (r *ForkRegistry) AfterForkParent() {
	for i := len(r.handlers) - 1; i >= 0; i-- {
		if h := r.handlers[i].ParentAfter; h != nil {
			h()
		}
	}
}

// AfterForkChild releases locks in descending priority order in the child
// process; a child's post-fork view is a single-threaded snapshot of
// whatever the parent held locked, so ChildAfter typically just re-arms the
// lock rather than unlocking a mutex another goroutine might be blocked on.
func (r *ForkRegistry) AfterForkChild() {
	for i := len(r.handlers) - 1; i >= 0; i-- {
		if h := r.handlers[i].ChildAfter; h != nil {
			h()
		}
	}
}
