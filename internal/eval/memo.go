// Copyright 2024 The letin Authors
// This file is part of letin.

package eval

import (
	"encoding/binary"
	"math"
	"sync"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"

	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/value"
)

// Memo memoizes a function's results keyed by its (deep-forced) argument
// list. Each function gets its own bounded cache; eviction drops the oldest
// unused entry both from the cache and from the corresponding hash_table
// object's live entry list so the garbage collector can reclaim it.
type Memo struct {
	capacity int

	mu     sync.Mutex
	tables map[int]*memoTable
}

type memoTable struct {
	mu      sync.Mutex
	hashObj *value.Object // TypeHashTable; registered as a GC root
	cache   *lru.Cache
}

// NewMemo returns a Memo strategy whose per-function caches hold at most
// capacity entries each.
func NewMemo(capacity int) *Memo {
	return &Memo{capacity: capacity, tables: make(map[int]*memoTable)}
}

func (m *Memo) tableFor(funIndex int, rt Runtime) (*memoTable, *errs.RuntimeError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[funIndex]; ok {
		return t, nil
	}

	hashObj, rerr := rt.Allocate(func() *value.Object { return value.NewHashTable() })
	if rerr != nil {
		return nil, rerr
	}
	t := &memoTable{hashObj: hashObj}
	// The eviction callback runs synchronously inside cache.Add, which
	// PostLeave only calls with t.mu already held.
	cache, err := lru.NewWithEvict(m.capacity, func(key, val interface{}) {
		if entry, ok := val.(*value.Object); ok {
			t.hashObj.RemoveEntry(entry)
		}
	})
	if err != nil {
		return nil, errs.Newf(errs.OutOfMemory, "eval: memo cache: %v", err)
	}
	t.cache = cache
	m.tables[funIndex] = t
	return t, nil
}

// TraverseRootObjects implements gc.RootProvider: every function's
// hash_table object is a GC root, and mark() traces through its entries
// from there.
func (m *Memo) TraverseRootObjects(push func(*value.Object)) {
	m.mu.Lock()
	tables := make([]*memoTable, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	m.mu.Unlock()
	for _, t := range tables {
		push(t.hashObj)
	}
}

func (m *Memo) PreEnter(call Call, rt Runtime) (bool, value.Value, *errs.RuntimeError) {
	key, forced, ok, rerr := memoKey(call.Args, rt)
	if rerr != nil {
		return false, value.Value{}, rerr
	}
	if !ok {
		return false, value.Value{}, nil // unique or otherwise unhashable arg: never memoized
	}

	t, rerr := m.tableFor(call.FunIndex, rt)
	if rerr != nil {
		return false, value.Value{}, rerr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.cache.Get(key); ok {
		entry := v.(*value.Object)
		// A digest match alone is not proof of equality: two distinct
		// argument lists can collide on the xxhash64 bucket. Only a hit
		// whose stored args actually equal this call's args may be reused.
		if argsEqual(entry.EntryArgs(), forced) {
			return true, entry.EntryResult(), nil
		}
	}
	return false, value.Value{}, nil
}

func (m *Memo) PostLeave(call Call, result value.Value, rt Runtime) (value.Value, *errs.RuntimeError) {
	key, forced, ok, rerr := memoKey(call.Args, rt)
	if rerr != nil || !ok {
		return result, rerr
	}
	t, rerr := m.tableFor(call.FunIndex, rt)
	if rerr != nil {
		return result, rerr
	}

	entryObj, rerr := rt.Allocate(func() *value.Object {
		return value.NewHashTableEntry(forced, result)
	})
	if rerr != nil {
		return result, rerr
	}

	t.mu.Lock()
	t.hashObj.AddEntry(entryObj)
	t.cache.Add(key, entryObj)
	t.mu.Unlock()
	return result, nil
}

// argsEqual reports whether two forced argument lists (as produced by
// memoKey) are equal value for value, the same notion of equality memoKey's
// digest is built from: int/float by value, references by pointer identity.
func argsEqual(a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Kind != y.Kind {
			return false
		}
		switch x.Kind {
		case value.KindInt:
			if x.I != y.I {
				return false
			}
		case value.KindFloat:
			if x.F != y.F {
				return false
			}
		case value.KindRef:
			if x.Ref != y.Ref {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// memoKey deep-forces args and folds them into a single digest, returning
// the forced argument list alongside it so callers can follow up a digest
// hit with an exact equality check (§4.3 requires hashing and equality, not
// hashing alone) rather than trusting the digest not to collide. Lazy
// references are forced by DeepForce before hashing. memoKey refuses (and so
// disables memoization for the call) a live unique reference, which cannot
// be hashed without consuming it, and any forced value whose kind is not
// int, float or ref.
func memoKey(args []value.Value, rt Runtime) (uint64, []value.Value, bool, *errs.RuntimeError) {
	h := xxhash.New()
	var buf [8]byte
	forced := make([]value.Value, len(args))
	for i, a := range args {
		f, rerr := DeepForce(a, rt)
		if rerr != nil {
			return 0, nil, false, rerr
		}
		if f.Kind == value.KindRef && f.Ref != nil && f.Ref.Unique() {
			return 0, nil, false, nil
		}
		forced[i] = f
		switch f.Kind {
		case value.KindInt:
			binary.LittleEndian.PutUint64(buf[:], uint64(f.I))
			h.Write([]byte{byte(value.KindInt)})
			h.Write(buf[:])
		case value.KindFloat:
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f.F))
			h.Write([]byte{byte(value.KindFloat)})
			h.Write(buf[:])
		case value.KindRef:
			// Non-unique references hash by pointer identity: two distinct
			// objects are always distinct keys, matching REQ/RNE identity
			// comparison semantics.
			binary.LittleEndian.PutUint64(buf[:], uint64(uintptr(unsafe.Pointer(f.Ref))))
			h.Write([]byte{byte(value.KindRef)})
			h.Write(buf[:])
		default:
			return 0, nil, false, nil
		}
	}
	return h.Sum64(), forced, true, nil
}
