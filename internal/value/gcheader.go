// Copyright 2024 The letin Authors
// This file is part of letin.

package value

// This file exposes the GC header fields threaded onto every Object (§4.4)
// through accessor methods rather than exported fields, so package gc is the
// only caller expected to touch them while value.Object's public surface
// stays about the object's payload, not its collector bookkeeping.

// Marked reports whether the collector's current mark bit is set.
func (o *Object) Marked() bool { return o.mark }

// SetMarked sets or clears the mark bit.
func (o *Object) SetMarked(m bool) { o.mark = m }

// ListNext returns the next object in the collector's sweep list.
func (o *Object) ListNext() *Object { return o.listNext }

// SetListNext links o into the collector's sweep list.
func (o *Object) SetListNext(next *Object) { o.listNext = next }

// WorkNext returns the next object threaded onto the collector's explicit
// mark worklist (the object header field reused as a singly-linked stack,
// §4.4 "Mark").
func (o *Object) WorkNext() *Object { return o.workNext }

// SetWorkNext threads o onto the mark worklist.
func (o *Object) SetWorkNext(next *Object) { o.workNext = next }
