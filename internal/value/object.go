// Copyright 2024 The letin Authors
// This file is part of letin.

package value

import "sync"

// ObjType identifies which variant an Object's payload fields hold.
type ObjType uint16

const (
	TypeIArray8 ObjType = iota
	TypeIArray16
	TypeIArray32
	TypeIArray64
	TypeSFArray
	TypeDFArray
	TypeRArray
	TypeTuple
	TypeIO
	TypeLazyValue
	TypeNative
	// TypeHashTable and TypeHashTableEntry are internal object variants used
	// by the memoization cache (§4.3); they are never visible to program
	// code (see FlagInternal).
	TypeHashTable
	TypeHashTableEntry
)

func (t ObjType) String() string {
	switch t {
	case TypeIArray8:
		return "iarray8"
	case TypeIArray16:
		return "iarray16"
	case TypeIArray32:
		return "iarray32"
	case TypeIArray64:
		return "iarray64"
	case TypeSFArray:
		return "sfarray"
	case TypeDFArray:
		return "dfarray"
	case TypeRArray:
		return "rarray"
	case TypeTuple:
		return "tuple"
	case TypeIO:
		return "io"
	case TypeLazyValue:
		return "lazy_value"
	case TypeNative:
		return "native_object"
	case TypeHashTable:
		return "hash_table"
	case TypeHashTableEntry:
		return "hash_table_entry"
	default:
		return "object_type(?)"
	}
}

// Flag is a bitset OR'd onto an Object's header, per §3.
type Flag uint8

const (
	// FlagUnique marks a linear object: at most one live (non-canceled)
	// reference may reach it at a time (invariant 1).
	FlagUnique Flag = 1 << iota
	// FlagInternal marks an object invisible to program code (hash tables,
	// hash-table entries).
	FlagInternal
)

func (f Flag) Unique() bool   { return f&FlagUnique != 0 }
func (f Flag) Internal() bool { return f&FlagInternal != 0 }

// LazyValue is the payload of a TypeLazyValue object: a thunk capturing a
// callee and its already-forced-or-not argument list (§3, §4.3).
type LazyValue struct {
	Mu           sync.Mutex
	MustBeShared bool
	Value        Value // Error() until forced; final value after
	FunIndex     int
	Args         []Value
}

// NativeVTable is the virtual dispatch table a native_object carries, per
// §3: finalize/copy/hash are supplied by the native library that created it.
type NativeVTable struct {
	Finalize func(payload interface{})
	Copy     func(payload interface{}) interface{}
	Hash     func(payload interface{}) uint64
}

// NativeObject is the payload of a TypeNative object: an opaque value owned
// by native code, dispatched through its VTable.
type NativeObject struct {
	Payload interface{}
	VTable  NativeVTable
}

// Object is the heap representation described by §3/§4.1. A single struct
// covers every variant; Type selects which payload fields are meaningful,
// following the "arena with typed length-prefixed header" re-architecture of
// §9 rather than a union of raw pointers.
type Object struct {
	Type   ObjType
	Flags  Flag
	Length int // element/slot count; meaning depends on Type

	// Ints backs iarray8/16/32/64 (each element widened to int64 for a
	// uniform Go representation; the loader narrows on read/write per the
	// declared element width).
	Ints []int64
	// Floats backs sfarray/dfarray.
	Floats []float64
	// Refs backs rarray elements, tuple slots (parallel with ElemTags),
	// lazy_value.Args via Lazy, and hash_table/hash_table_entry links.
	Refs []Value
	// ElemTags holds, for a tuple, the Kind of each slot in Refs —
	// stored separately from the slot's raw value so cancellation (turning
	// a slot's tag to KindCanceledRef) never disturbs the traceable
	// reference itself (§4.1 "Tuple element type").
	ElemTags []Kind

	Lazy   *LazyValue
	Native *NativeObject

	// GC header, threaded in by package gc. listNext links every live
	// object into the collector's sweep list; mark is the tri-color-free
	// single mark bit used by mark-and-sweep; workNext threads the explicit
	// mark worklist (§4.4 "spare header field").
	listNext *Object
	mark     bool
	workNext *Object
}

// Unique reports whether o is a linear object.
func (o *Object) Unique() bool { return o.Flags.Unique() }

// NewIArray constructs a fresh, non-unique integer array object of the given
// bit width (8/16/32/64); callers needing a unique array set FlagUnique
// afterward (construction and uniqueness are orthogonal, per §4.1).
func NewIArray(width int, data []int64) *Object {
	var t ObjType
	switch width {
	case 8:
		t = TypeIArray8
	case 16:
		t = TypeIArray16
	case 32:
		t = TypeIArray32
	case 64:
		t = TypeIArray64
	default:
		panic("value: unsupported iarray width")
	}
	return &Object{Type: t, Length: len(data), Ints: data}
}

func NewSFArray(data []float64) *Object {
	return &Object{Type: TypeSFArray, Length: len(data), Floats: data}
}

func NewDFArray(data []float64) *Object {
	return &Object{Type: TypeDFArray, Length: len(data), Floats: data}
}

func NewRArray(data []Value) *Object {
	return &Object{Type: TypeRArray, Length: len(data), Refs: data}
}

// NewTuple constructs a heterogeneous tuple. elems and tags must be the same
// length; tags[i] is the live Kind of elems[i] and is what cancellation
// rewrites (elems[i] itself is left untouched so the GC keeps tracing it).
func NewTuple(elems []Value, tags []Kind) *Object {
	if len(elems) != len(tags) {
		panic("value: tuple elems/tags length mismatch")
	}
	return &Object{Type: TypeTuple, Length: len(elems), Refs: elems, ElemTags: tags}
}

// NewIO returns a fresh, unique IO effect token.
func NewIO() *Object {
	return &Object{Type: TypeIO, Flags: FlagUnique}
}

// NewLazyValue constructs an unforced thunk for funIndex applied to args.
func NewLazyValue(funIndex int, args []Value, mustShare bool) *Object {
	return &Object{
		Type: TypeLazyValue,
		Lazy: &LazyValue{MustBeShared: mustShare, Value: Error(), FunIndex: funIndex, Args: args},
	}
}

// NewNative wraps a host payload with its virtual dispatch table.
func NewNative(payload interface{}, vt NativeVTable) *Object {
	return &Object{Type: TypeNative, Native: &NativeObject{Payload: payload, VTable: vt}}
}

// NewHashTableEntry builds an internal entry object for the memoization
// cache: Refs holds the forced argument key followed by the cached result as
// its final element.
func NewHashTableEntry(args []Value, result Value) *Object {
	refs := make([]Value, 0, len(args)+1)
	refs = append(refs, args...)
	refs = append(refs, result)
	return &Object{Type: TypeHashTableEntry, Flags: FlagInternal, Length: len(args), Refs: refs}
}

// EntryArgs returns the key portion of a hash-table-entry object.
func (o *Object) EntryArgs() []Value {
	if o.Type != TypeHashTableEntry {
		panic("value: EntryArgs on non hash-table-entry object")
	}
	return o.Refs[:o.Length]
}

// EntryResult returns the cached-result portion of a hash-table-entry object.
func (o *Object) EntryResult() Value {
	if o.Type != TypeHashTableEntry {
		panic("value: EntryResult on non hash-table-entry object")
	}
	return o.Refs[o.Length]
}

// NewHashTable builds an internal hash-table object whose Refs are live
// references to HashTableEntry objects; it registers itself with the GC's
// root set through the evaluation strategy's traverse_root_objects hook
// (§4.4) rather than being reachable from any thread or variable.
func NewHashTable() *Object {
	return &Object{Type: TypeHashTable, Flags: FlagInternal}
}

// AddEntry appends entry (a hash-table-entry object) to table's live set.
func (o *Object) AddEntry(entry *Object) {
	if o.Type != TypeHashTable {
		panic("value: AddEntry on non hash-table object")
	}
	o.Refs = append(o.Refs, RefValue(entry))
	o.Length = len(o.Refs)
}

// RemoveEntry drops entry from table's live set (used on LRU eviction so a
// mark-and-sweep pass no longer finds it reachable).
func (o *Object) RemoveEntry(entry *Object) {
	if o.Type != TypeHashTable {
		panic("value: RemoveEntry on non hash-table object")
	}
	for i, r := range o.Refs {
		if r.Ref == entry {
			o.Refs = append(o.Refs[:i], o.Refs[i+1:]...)
			o.Length = len(o.Refs)
			return
		}
	}
}
