// Copyright 2024 The letin Authors
// This file is part of letin.

package gc

import "github.com/letin-run/letin/internal/value"

// mark runs the explicit-worklist tracer over everything reachable from
// roots. The worklist is a singly-linked stack threaded through each
// object's WorkNext header field rather than the Go call stack, so marking
// depth is bounded by heap size, not recursion depth.
func mark(roots []*value.Object) {
	var head *value.Object
	push := func(o *value.Object) {
		if o == nil || o.Marked() {
			return
		}
		o.SetMarked(true)
		o.SetWorkNext(head)
		head = o
	}

	for _, r := range roots {
		push(r)
	}

	for head != nil {
		o := head
		head = o.WorkNext()
		o.SetWorkNext(nil)
		traceChildren(o, push)
	}
}

// traceChildren pushes every object o directly references, per the rules:
// rarray elements and tuple elements tagged ref/canceled_ref are traced;
// lazy_value traces its forced value and its captured argument list;
// hash_table traces its live entries and hash_table_entry traces its key
// arguments and cached result. int/float/pair immediates are skipped.
func traceChildren(o *value.Object, push func(*value.Object)) {
	switch o.Type {
	case value.TypeRArray:
		for _, v := range o.Refs {
			collectRoot(v, push)
		}

	case value.TypeTuple:
		for i, tag := range o.ElemTags {
			if tag == value.KindRef || tag == value.KindCanceledRef ||
				tag == value.KindLazyRef || tag == value.KindLockedLazyRef {
				collectRoot(o.Refs[i], push)
			}
		}

	case value.TypeLazyValue:
		if o.Lazy == nil {
			return
		}
		o.Lazy.Mu.Lock()
		collectRoot(o.Lazy.Value, push)
		args := o.Lazy.Args
		o.Lazy.Mu.Unlock()
		for _, v := range args {
			collectRoot(v, push)
		}

	case value.TypeHashTable:
		for _, v := range o.Refs {
			collectRoot(v, push)
		}

	case value.TypeHashTableEntry:
		for _, v := range o.Refs {
			collectRoot(v, push)
		}
	}
}
