// Copyright 2024 The letin Authors
// This file is part of letin.

package gc

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/value"
)

// Collector is the mark-and-sweep garbage collector. Its zero value is not
// usable; construct with New.
//
// Quiescence here is cooperative rather than signal-based: probe-lang's
// runtime and the rest of the retrieval pack never install POSIX signal
// handlers to park goroutines (Go's runtime reserves SIGURG and friends for
// its own preemption, and a goroutine cannot be suspended from outside
// short of stopping the whole process), so mutators call ThreadContext's
// Safepoint at well-defined points instead of blocking inside a signal
// handler. Collect drives the same three-step stop-the-world protocol
// (take the GC lock, take the thread-set lock, signal every thread) using
// channels instead of SIGUSR1/SIGUSR2.
type Collector struct {
	mu        sync.Mutex // "the GC lock": guards the object list and allocation
	threadsMu sync.Mutex // "the thread-set lock": guards the registered-thread set

	threads map[*ThreadContext]struct{}
	head    *value.Object

	immortal []*value.Object

	globals       []GlobalVarTable
	rootProviders []RootProvider

	alloc Allocator

	Forks *ForkRegistry
}

// New returns a Collector backed by alloc (a CountingAllocator with no
// limit if alloc is nil).
func New(alloc Allocator) *Collector {
	if alloc == nil {
		alloc = NewCountingAllocator(0)
	}
	return &Collector{
		threads: make(map[*ThreadContext]struct{}),
		alloc:   alloc,
		Forks:   NewForkRegistry(),
	}
}

// Lock acquires the GC lock; callers use this to make a heap-slot mutation
// atomic with respect to a concurrent root-scan.
func (c *Collector) Lock() { c.mu.Lock() }

// Unlock releases the GC lock.
func (c *Collector) Unlock() { c.mu.Unlock() }

// AddThreadContext registers t so Collect traces its registers as roots and
// quiesces it during collection.
func (c *Collector) AddThreadContext(t *ThreadContext) {
	c.threadsMu.Lock()
	defer c.threadsMu.Unlock()
	c.threads[t] = struct{}{}
}

// RemoveThreadContext unregisters t, typically when its owning thread
// finishes running the program.
func (c *Collector) RemoveThreadContext(t *ThreadContext) {
	c.threadsMu.Lock()
	defer c.threadsMu.Unlock()
	delete(c.threads, t)
}

// AddVMContext registers an environment's global-variable table as a root
// source.
func (c *Collector) AddVMContext(globals GlobalVarTable) {
	c.threadsMu.Lock()
	defer c.threadsMu.Unlock()
	c.globals = append(c.globals, globals)
}

// RegisterRootProvider registers an additional internal root source (e.g.
// an evaluation strategy's memoization tables).
func (c *Collector) RegisterRootProvider(p RootProvider) {
	c.threadsMu.Lock()
	defer c.threadsMu.Unlock()
	c.rootProviders = append(c.rootProviders, p)
}

// sizeOf approximates an object's allocation footprint for the allocator's
// budget accounting; it need not be exact, only monotonic in the object's
// actual backing-slice sizes.
func sizeOf(o *value.Object) uintptr {
	const word = 8
	size := uintptr(32) // header + fixed fields
	size += uintptr(len(o.Ints)) * word
	size += uintptr(len(o.Floats)) * word
	size += uintptr(len(o.Refs)) * (word + 1)
	size += uintptr(len(o.ElemTags))
	return size
}

// Allocate reserves space for and links a freshly built heap object onto
// the collector's live-object list. build constructs the object; ctx
// records the in-flight pointer in TmpPtr before the object is linked, so a
// collection racing with this call cannot free an object that has not yet
// been stored anywhere else reachable.
func (c *Collector) Allocate(ctx *ThreadContext, build func() *value.Object) (*value.Object, *errs.RuntimeError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	obj := build()
	size := sizeOf(obj)
	if !c.alloc.Reserve(size) {
		return nil, errs.New(errs.OutOfMemory)
	}
	ctx.TmpPtr = obj
	obj.SetListNext(c.head)
	c.head = obj
	return obj, nil
}

// AllocateImmortal links obj into the environment-owned immortal set: it is
// traced as a root on every collection (its mark bit is cleared again
// afterwards) and is never swept (§3 invariant 4).
func (c *Collector) AllocateImmortal(build func() *value.Object) *value.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj := build()
	c.immortal = append(c.immortal, obj)
	return obj
}

// Collect performs one stop-the-world mark-and-sweep cycle and returns the
// number of objects freed.
func (c *Collector) Collect() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threadsMu.Lock()
	defer c.threadsMu.Unlock()

	var g errgroup.Group
	threads := make([]*ThreadContext, 0, len(c.threads))
	for t := range c.threads {
		threads = append(threads, t)
	}
	for _, t := range threads {
		t := t
		t.resume = make(chan struct{})
		t.quiesceRequested.Store(true)
		g.Go(func() error {
			<-t.parked
			return nil
		})
	}
	_ = g.Wait()

	roots := c.collectRoots(threads)
	mark(roots)
	newHead, freed, freedBytes := sweep(c.head)
	c.head = newHead
	c.alloc.Release(freedBytes)
	// Immortal objects are never part of the swept list, so sweep never
	// clears the mark bit mark() set on them; clear it here so the next
	// cycle's push() does not treat them (and transitively their children)
	// as already-visited and skip re-tracing reachable objects.
	for _, o := range c.immortal {
		o.SetMarked(false)
	}

	for _, t := range threads {
		t.quiesceRequested.Store(false)
		close(t.resume)
	}
	return freed
}

func (c *Collector) collectRoots(threads []*ThreadContext) []*value.Object {
	var roots []*value.Object
	push := func(o *value.Object) { roots = append(roots, o) }

	for _, t := range threads {
		pushRootsFromThread(t, push)
	}
	for _, g := range c.globals {
		for i := 0; i < g.NumVars(); i++ {
			collectRoot(g.VarAt(i), push)
		}
	}
	for _, rp := range c.rootProviders {
		rp.TraverseRootObjects(push)
	}
	roots = append(roots, c.immortal...)
	return roots
}
