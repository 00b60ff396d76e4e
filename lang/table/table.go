// Package table implements the open-addressed, linear-probing hash table
// used for globals, string interning, class method tables and instance
// field tables. It is shared by every one of those use sites so that the
// collector's weak-reference sweep of the (otherwise ordinary) string
// intern table (RemoveWhite) and the tombstone/load-factor bookkeeping
// behave identically everywhere a willow program can observe a hash map.
package table

// Key is the constraint on table keys. It places no requirement of its
// own: bucketing and equality come from the hash and equal functions given
// to New, and the hash-and-bytes access FindString and RemoveWhite need is
// the StringKey interface below. It is defined locally, rather than
// importing package value's *ObjString directly, to avoid an import cycle
// (value's ObjClass and ObjInstance each hold a *Table).
type Key any

// Value is the minimal interface a table value must satisfy. Defined
// locally for the same reason as Key; any value.Value satisfies it
// structurally.
type Value interface {
	String() string
	Truthy() bool
}

// StringKey is implemented by keys that additionally expose their raw
// content and hash, which FindString needs to intern without already
// possessing a matching Key.
type StringKey interface {
	Key
	Chars() string
	Hash() uint32
}

const maxLoad = 0.75

// entry is one slot: !used means truly empty; used && dead means a
// tombstone (a deleted entry, with zeroed key and value, that must not
// break the probe sequence of entries inserted after it).
type entry[K Key, V Value] struct {
	key   K
	value V
	used  bool // false for a never-written slot; true for both live entries and tombstones
	dead  bool // true for a tombstone (used && dead)
}

// Table is an open-addressed hash table from K to V with linear probing,
// tombstone-based deletion, a 0.75 load factor and capacity doubling,
// grounded on clox's table.c.
type Table[K Key, V Value] struct {
	count   int // live entries plus tombstones
	entries []entry[K, V]
	hash    func(K) uint32
	equal   func(K, K) bool
}

// New returns an empty table. hash computes a key's bucket hash; equal
// reports whether two keys denote the same entry (ordinarily pointer
// identity, since keys are expected to already be interned/canonical).
func New[K Key, V Value](hash func(K) uint32, equal func(K, K) bool) *Table[K, V] {
	return &Table[K, V]{hash: hash, equal: equal}
}

// Count returns the number of live (non-tombstone) entries.
func (t *Table[K, V]) Count() int {
	n := 0
	for _, e := range t.entries {
		if e.used && !e.dead {
			n++
		}
	}
	return n
}

// Get returns the value stored for key, and whether it was found.
func (t *Table[K, V]) Get(key K) (V, bool) {
	var zero V
	if len(t.entries) == 0 {
		return zero, false
	}
	e := t.find(key)
	if e == nil || !e.used || e.dead {
		return zero, false
	}
	return e.value, true
}

// Set stores value for key, growing the table first if needed. It reports
// true if this created a brand new key (one not previously present,
// including one that only existed as a tombstone).
func (t *Table[K, V]) Set(key K, value V) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow(growCapacity(len(t.entries)))
	}
	e := t.find(key)
	isNew := !e.used || e.dead
	if isNew && !e.dead {
		t.count++
	}
	e.key = key
	e.value = value
	e.used = true
	e.dead = false
	return isNew
}

// Delete removes key's entry, if present, replacing it with a tombstone so
// later entries' probe sequences are not broken. It reports whether the
// key was present.
func (t *Table[K, V]) Delete(key K) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.find(key)
	if e == nil || !e.used || e.dead {
		return false
	}
	var zeroK K
	var zeroV V
	e.key = zeroK
	e.value = zeroV
	e.dead = true
	return true
}

// find returns a pointer to the slot for key: the matching live entry if
// present, otherwise the first tombstone encountered (so Set can reuse
// it), otherwise the first empty slot.
func (t *Table[K, V]) find(key K) *entry[K, V] {
	if len(t.entries) == 0 {
		return nil
	}
	ncap := uint32(len(t.entries))
	idx := t.hash(key) % ncap
	var tombstone *entry[K, V]
	for {
		e := &t.entries[idx]
		switch {
		case !e.used:
			if tombstone != nil {
				return tombstone
			}
			return e
		case e.dead:
			if tombstone == nil {
				tombstone = e
			}
		case t.equal(e.key, key):
			return e
		}
		idx = (idx + 1) % ncap
	}
}

func (t *Table[K, V]) grow(newCap int) {
	old := t.entries
	t.entries = make([]entry[K, V], newCap)
	t.count = 0
	for _, e := range old {
		if !e.used || e.dead {
			continue
		}
		dst := t.find(e.key)
		dst.key = e.key
		dst.value = e.value
		dst.used = true
		t.count++
	}
}

func growCapacity(n int) int {
	if n < 8 {
		return 8
	}
	return n * 2
}

// AddAll copies every live entry of src into t, overwriting any existing
// entries with the same key. Used to implement single inheritance: a
// subclass starts as a copy of its superclass's method table.
func (t *Table[K, V]) AddAll(src *Table[K, V]) {
	for _, e := range src.entries {
		if e.used && !e.dead {
			t.Set(e.key, e.value)
		}
	}
}

// ForEach calls fn for every live entry. fn must not mutate the table.
func (t *Table[K, V]) ForEach(fn func(key K, value V)) {
	for _, e := range t.entries {
		if e.used && !e.dead {
			fn(e.key, e.value)
		}
	}
}

// FindString looks up an entry whose key is a string-like key with the
// given raw content and hash, without requiring the caller to already hold
// a Key of matching identity. It is used exclusively by the VM's string
// interning path (InternString): on a hit, the canonical, already-interned
// key is returned so no duplicate allocation is needed.
func FindString[K StringKey, V Value](t *Table[K, V], chars string, hash uint32) (K, bool) {
	var zero K
	if len(t.entries) == 0 {
		return zero, false
	}
	ncap := uint32(len(t.entries))
	idx := hash % ncap
	for {
		e := &t.entries[idx]
		switch {
		case !e.used:
			return zero, false
		case e.dead:
			// tombstone: keep probing
		case e.key.Hash() == hash && e.key.Chars() == chars:
			return e.key, true
		}
		idx = (idx + 1) % ncap
	}
}

// RemoveWhite deletes every entry whose key is an unmarked object, as
// classified by isMarked. Called during sweep, before objects are actually
// freed, so the (weak) string intern table does not keep dead strings
// artificially alive nor dangle a reference to one that's about to be
// unlinked.
func RemoveWhite[K StringKey, V Value](t *Table[K, V], isMarked func(K) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.used && !e.dead && !isMarked(e.key) {
			var zeroK K
			var zeroV V
			e.key = zeroK
			e.value = zeroV
			e.dead = true
		}
	}
}
