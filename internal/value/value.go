// Copyright 2024 The letin Authors
// This file is part of letin.

// Package value implements the letin value and object model: the tagged
// Value union (§3) and the heap Object header/variants (§4.1), along with
// the lifecycle discipline around unique (linear) objects.
package value

import "fmt"

// Kind tags the variant held by a Value.
type Kind uint8

const (
	// KindError is a sentinel kind; it never appears in a running program's
	// data and exists only as the placeholder held by an unforced thunk's
	// lazy_value.value field.
	KindError Kind = iota
	KindInt
	KindFloat
	KindRef
	// KindCanceledRef marks a reference slot whose payload has been
	// transferred away: still a GC root (invariant 2), unreadable by the
	// running program.
	KindCanceledRef
	// KindLazyRef references a lazy_value object that may or may not need
	// to share its forced result; KindLockedLazyRef is the same but the
	// must_be_shared flag is set on the referenced lazy_value.
	KindLazyRef
	KindLockedLazyRef
	// KindPair is an internal two-word immediate produced by certain load
	// instructions; it never appears in a tuple or array slot.
	KindPair
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindRef:
		return "ref"
	case KindCanceledRef:
		return "canceled_ref"
	case KindLazyRef:
		return "lazy_ref"
	case KindLockedLazyRef:
		return "locked_lazy_ref"
	case KindPair:
		return "pair"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is the tagged union described by spec §3. It is a plain value type
// (no pointers other than Ref) so it can be copied freely by the
// interpreter's register/stack machinery; the uniqueness discipline is
// enforced by the operations in unique.go, not by the type system.
type Value struct {
	Kind Kind

	I      int64   // int payload, or low word of a pair
	F      float64 // float payload
	PairHi int32   // high word of a pair

	Ref *Object // heap payload for Ref/CanceledRef/LazyRef/LockedLazyRef

	// LazilyCanceled is the modifier bit from §3 used by the GC when tracing
	// a canceled reference into a shared thunk: it marks that the thunk
	// itself (not just this slot) must be treated as transferred.
	LazilyCanceled bool
}

// Int constructs an int Value.
func Int(i int64) Value { return Value{Kind: KindInt, I: i} }

// Float constructs a float Value.
func Float(f float64) Value { return Value{Kind: KindFloat, F: f} }

// Pair constructs the two-word immediate used by certain load instructions.
func Pair(lo, hi int32) Value { return Value{Kind: KindPair, I: int64(lo), PairHi: hi} }

// Error returns the sentinel error Value used as an unforced thunk's value.
func Error() Value { return Value{Kind: KindError} }

// PairWords returns the two words of a pair Value; only valid when
// Kind == KindPair.
func (v Value) PairWords() (int32, int32) { return int32(v.I), v.PairHi }

// IsNumber reports whether v holds an int or float payload.
func (v Value) IsNumber() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// IsReference reports whether v's Kind carries a heap Ref (live, canceled, or
// lazy alike) — i.e. whether the GC must trace through it.
func (v Value) IsReference() bool {
	switch v.Kind {
	case KindRef, KindCanceledRef, KindLazyRef, KindLockedLazyRef:
		return true
	default:
		return false
	}
}

// IsLazy reports whether v refers to a lazy_value object, forced or not.
func (v Value) IsLazy() bool { return v.Kind == KindLazyRef || v.Kind == KindLockedLazyRef }

// RefValue wraps obj as a live reference.
func RefValue(obj *Object) Value { return Value{Kind: KindRef, Ref: obj} }

// LazyRefValue returns a lazy reference to obj (a lazy_value object). When
// mustShare is true the produced Kind is KindLockedLazyRef, mirroring the
// lazy_value's own must_be_shared flag so a reader can tell from the Value
// alone whether forcing requires writing the result back under lock.
func LazyRefValue(obj *Object, mustShare bool) Value {
	if mustShare {
		return Value{Kind: KindLockedLazyRef, Ref: obj}
	}
	return Value{Kind: KindLazyRef, Ref: obj}
}

// Canceled returns a copy of v with Kind rewritten to KindCanceledRef,
// preserving Ref so the GC keeps tracing it (invariant 2). It panics if v is
// not currently a live reference; callers are expected to have checked
// Kind == KindRef first.
func (v Value) Canceled() Value {
	if v.Kind != KindRef {
		panic("value: Canceled called on a non-ref Value")
	}
	return Value{Kind: KindCanceledRef, Ref: v.Ref, LazilyCanceled: v.LazilyCanceled}
}
