// Copyright 2024 The letin Authors
// This file is part of letin.

package value

import "github.com/letin-run/letin/internal/errs"

// ConsumeUnique implements "consume unique value" (§4.1): if slot holds a
// live reference to a unique object, it atomically rewrites *slot to
// KindCanceledRef and returns the original live Value for the caller to
// install into its destination register. Non-unique values and already-
// shared (non-unique-object) references pass through unchanged — only
// unique objects are subject to the single-live-reference discipline.
//
// Callers that must serialize this against the GC's root scan (any write
// reachable from a published slot — see §4.1 "Mutation during GC") are
// expected to hold the collector's lock for the duration of the call; this
// function itself does no locking so it composes with whatever critical
// section the caller has already established.
func ConsumeUnique(slot *Value) (Value, *errs.RuntimeError) {
	if slot.Kind == KindCanceledRef {
		return Value{}, errs.New(errs.AgainUsedUnique)
	}
	if slot.Kind != KindRef || slot.Ref == nil || !slot.Ref.Unique() {
		return *slot, nil
	}
	v := *slot
	*slot = slot.Canceled()
	return v, nil
}

// CheckStoreIntoShared reports UNIQUE_OBJECT if v is a live reference to a
// unique object; it is called before storing v into a container that does
// not itself track per-slot cancellation (e.g. a plain rarray element, as
// opposed to a tuple slot whose ElemTags can record the cancellation).
func CheckStoreIntoShared(v Value) *errs.RuntimeError {
	if v.Kind == KindRef && v.Ref != nil && v.Ref.Unique() {
		return errs.New(errs.UniqueObject)
	}
	return nil
}

// StoreTupleSlot implements a unique-aware tuple-fill store: it writes v
// into t.Refs[i] and t.ElemTags[i] = v.Kind, respecting invariant 2 (the tag
// is what cancellation rewrites, not the slot itself). sharedFill indicates
// the fill instruction variant that disallows placing a unique object into a
// shared (non-unique) tuple — per §4.2's RUTFILLR tie-break this is reported
// as AGAIN_USED_UNIQUE, not UNIQUE_OBJECT.
func StoreTupleSlot(t *Object, i int, v Value, sharedFill bool) *errs.RuntimeError {
	if sharedFill && v.Kind == KindRef && v.Ref != nil && v.Ref.Unique() {
		return errs.New(errs.AgainUsedUnique)
	}
	t.Refs[i] = v
	t.ElemTags[i] = v.Kind
	return nil
}

// CancelTupleSlot marks tuple slot i as canceled without disturbing the
// underlying reference, per invariant 2: the GC must keep tracing it.
func CancelTupleSlot(t *Object, i int) *errs.RuntimeError {
	if t.ElemTags[i] == KindCanceledRef {
		return errs.New(errs.AgainUsedUnique)
	}
	t.ElemTags[i] = KindCanceledRef
	return nil
}
