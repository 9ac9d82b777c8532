// Copyright 2024 The letin Authors
// This file is part of letin.

package gc

import "github.com/letin-run/letin/internal/value"

// sweep makes one pass over the collector's object list: unmarked objects
// are unlinked and finalized (if native), marked objects have their mark
// bit cleared for the next cycle. It returns the number of objects freed
// and the sum of their sizeOf footprints, so the caller can give that many
// bytes back to the allocator's budget.
func sweep(head *value.Object) (newHead *value.Object, freed int, freedBytes uintptr) {
	var keep *value.Object
	for o := head; o != nil; {
		next := o.ListNext()
		if o.Marked() {
			o.SetMarked(false)
			o.SetListNext(keep)
			keep = o
		} else {
			finalize(o)
			freed++
			freedBytes += sizeOf(o)
		}
		o = next
	}
	return keep, freed, freedBytes
}

// finalize runs a native object's finalizer, if any, before the object is
// dropped. Other object types require no host-side cleanup; their Go
// backing slices are reclaimed by the garbage collector of the Go runtime
// itself once unreferenced.
func finalize(o *value.Object) {
	if o.Type == value.TypeNative && o.Native != nil && o.Native.VTable.Finalize != nil {
		o.Native.VTable.Finalize(o.Native.Payload)
	}
}
