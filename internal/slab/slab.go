// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: slab.go — fixed-capacity connection slab with intrusive free-list
//
// Purpose:
//   - Backs the connection table: every accepted socket gets a slot whose
//     index doubles as its completion tag, so a read/write/accept
//     completion can be routed back to its Record in O(1) with no map
//     lookup.
//   - Slot reuse goes through a LIFO free-list: while a slot is free, its
//     entry in the next array (kept beside the slots, not inside T) holds
//     the index of the next free slot, like a textbook freelist allocator.
//     A parallel inUse array records which slots are allocated, for
//     InUse/Len/Each. No generation counter — safe only because the
//     proactor never has more than one outstanding op per slot at a time.
//
// Notes:
//   - Capacity is fixed at compile time (constants.MaxConnections) and the
//     backing array is allocated once; Alloc/Release never grow or shrink
//     it, so there is no GC churn once the table is warm.
// ─────────────────────────────────────────────────────────────────────────────

package slab

import (
	"fmt"

	"github.com/simulo-server/beta173login/internal/constants"
)

// InvalidKey is returned by Alloc when the table is full, and is the
// sentinel stored in the tail slot's next field.
const InvalidKey Key = -1

// Key identifies a slot in a Table. It is reused directly as the
// completion tag for every op issued against that slot's connection.
type Key int32

// Table is a fixed-capacity array of T plus a LIFO free-list threaded
// through the unused slots' next entries.
type Table[T any] struct {
	slots    [constants.MaxConnections]T
	next     [constants.MaxConnections]Key
	inUse    [constants.MaxConnections]bool
	freeHead Key
}

// New returns a Table with every slot linked into the free-list, tail to
// head, mirroring slab.h's constructor loop.
func New[T any]() *Table[T] {
	t := &Table[T]{}
	for i := 0; i < constants.MaxConnections; i++ {
		if i == constants.MaxConnections-1 {
			t.next[i] = InvalidKey
		} else {
			t.next[i] = Key(i + 1)
		}
	}
	t.freeHead = 0
	return t
}

// Alloc removes the head of the free-list and returns its key with the
// slot's value zeroed. Returns InvalidKey, false if the table is full.
func (t *Table[T]) Alloc() (Key, bool) {
	if t.freeHead == InvalidKey {
		return InvalidKey, false
	}

	key := t.freeHead
	t.freeHead = t.next[key]
	t.slots[key] = *new(T)
	t.inUse[key] = true
	return key, true
}

// Get returns a pointer to the slot's value. The caller must only call
// this with a key it holds from a successful Alloc that hasn't since been
// Released — out-of-range or freed keys are a programmer error, not a
// runtime-recoverable one, so this asserts rather than returning an ok
// bool: the caller is expected to have already checked InUse where the
// key came from outside the table's own bookkeeping.
func (t *Table[T]) Get(key Key) *T {
	assertValidKey(key)
	return &t.slots[key]
}

// InUse reports whether key currently refers to an allocated slot.
func (t *Table[T]) InUse(key Key) bool {
	return key >= 0 && int(key) < constants.MaxConnections && t.inUse[key]
}

// Release returns key to the head of the free-list. Releasing a key twice
// corrupts the free-list (it would splice the slot into the chain twice)
// exactly as in the original template, so callers must track whether a
// slot has already been released — the proactor does this via its own
// per-connection state machine, never calling Release from two code paths
// for the same completion.
func (t *Table[T]) Release(key Key) {
	assertValidKey(key)
	t.inUse[key] = false
	t.next[key] = t.freeHead
	t.freeHead = key
}

// assertValidKey aborts with a descriptive panic when key falls outside
// [0, constants.MaxConnections) — an invalid slab index is a programmer
// error per spec's error taxonomy, not something a caller can recover
// from, so this deliberately doesn't return an ok bool.
func assertValidKey(key Key) {
	if key < 0 || int(key) >= constants.MaxConnections {
		panic(fmt.Sprintf("slab: key %d out of range [0, %d)", key, constants.MaxConnections))
	}
}

// Len returns the number of currently allocated slots.
func (t *Table[T]) Len() int {
	n := 0
	for i := 0; i < constants.MaxConnections; i++ {
		if t.inUse[i] {
			n++
		}
	}
	return n
}

// Each calls fn for every currently allocated slot, in index order. Used
// by Deinit to drain remaining connections without tracking a separate
// live set.
func (t *Table[T]) Each(fn func(Key, *T)) {
	for i := 0; i < constants.MaxConnections; i++ {
		if t.inUse[i] {
			fn(Key(i), &t.slots[i])
		}
	}
}
