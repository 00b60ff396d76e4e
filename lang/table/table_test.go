package table_test

import (
	"testing"

	"github.com/mna/willow/lang/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type strKey struct {
	s string
	h uint32
}

func (k strKey) Chars() string { return k.s }
func (k strKey) Hash() uint32  { return k.h }

type strVal string

func (v strVal) String() string { return string(v) }
func (v strVal) Truthy() bool   { return v != "" }

func hashFNV1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func newKey(s string) strKey { return strKey{s: s, h: hashFNV1a(s)} }

func newTable() *table.Table[strKey, strVal] {
	return table.New[strKey, strVal](
		func(k strKey) uint32 { return k.h },
		func(a, b strKey) bool { return a.s == b.s },
	)
}

func TestSetGetDelete(t *testing.T) {
	tb := newTable()

	isNew := tb.Set(newKey("a"), "1")
	assert.True(t, isNew)
	isNew = tb.Set(newKey("b"), "2")
	assert.True(t, isNew)

	v, ok := tb.Get(newKey("a"))
	require.True(t, ok)
	assert.Equal(t, strVal("1"), v)

	isNew = tb.Set(newKey("a"), "11")
	assert.False(t, isNew, "overwriting an existing key is not a new key")
	v, ok = tb.Get(newKey("a"))
	require.True(t, ok)
	assert.Equal(t, strVal("11"), v)

	_, ok = tb.Get(newKey("missing"))
	assert.False(t, ok)

	ok = tb.Delete(newKey("a"))
	assert.True(t, ok)
	_, ok = tb.Get(newKey("a"))
	assert.False(t, ok)

	ok = tb.Delete(newKey("a"))
	assert.False(t, ok, "deleting twice reports not-found the second time")

	assert.Equal(t, 1, tb.Count())
}

func TestTombstoneReuseDoesNotBreakProbeSequence(t *testing.T) {
	tb := newTable()
	tb.Set(newKey("x"), "1")
	tb.Set(newKey("y"), "2")
	tb.Set(newKey("z"), "3")

	tb.Delete(newKey("y"))

	v, ok := tb.Get(newKey("z"))
	require.True(t, ok, "deleting y must not hide z behind its tombstone")
	assert.Equal(t, strVal("3"), v)

	isNew := tb.Set(newKey("y"), "22")
	assert.True(t, isNew, "re-inserting a deleted key counts as new again")
	v, ok = tb.Get(newKey("y"))
	require.True(t, ok)
	assert.Equal(t, strVal("22"), v)
}

func TestGrowPreservesEntries(t *testing.T) {
	tb := newTable()
	for i := 0; i < 200; i++ {
		k := newKey(string(rune('a' + i%26)) + string(rune(i)))
		tb.Set(k, strVal(k.s))
	}
	for i := 0; i < 200; i++ {
		k := newKey(string(rune('a' + i%26)) + string(rune(i)))
		v, ok := tb.Get(k)
		require.True(t, ok)
		assert.Equal(t, strVal(k.s), v)
	}
}

func TestAddAll(t *testing.T) {
	src := newTable()
	src.Set(newKey("m1"), "one")
	src.Set(newKey("m2"), "two")

	dst := newTable()
	dst.Set(newKey("m2"), "overwritten")
	dst.Set(newKey("m3"), "three")

	dst.AddAll(src)

	v, ok := dst.Get(newKey("m1"))
	require.True(t, ok)
	assert.Equal(t, strVal("one"), v)

	v, ok = dst.Get(newKey("m2"))
	require.True(t, ok)
	assert.Equal(t, strVal("two"), v, "AddAll overwrites existing keys with the source's value")

	v, ok = dst.Get(newKey("m3"))
	require.True(t, ok)
	assert.Equal(t, strVal("three"), v)
}

func TestForEach(t *testing.T) {
	tb := newTable()
	tb.Set(newKey("a"), "1")
	tb.Set(newKey("b"), "2")
	tb.Delete(newKey("a"))

	seen := map[string]strVal{}
	tb.ForEach(func(k strKey, v strVal) { seen[k.s] = v })

	assert.Equal(t, map[string]strVal{"b": "2"}, seen, "ForEach skips tombstones")
}

func TestFindString(t *testing.T) {
	tb := newTable()
	k := newKey("hello")
	tb.Set(k, "world")

	found, ok := table.FindString[strKey, strVal](tb, "hello", k.h)
	require.True(t, ok)
	assert.Equal(t, k, found)

	_, ok = table.FindString[strKey, strVal](tb, "nope", hashFNV1a("nope"))
	assert.False(t, ok)
}

func TestFindStringSkipsTombstones(t *testing.T) {
	tb := newTable()
	k1 := newKey("one")
	k2 := newKey("two")
	tb.Set(k1, "1")
	tb.Set(k2, "2")
	tb.Delete(k1)

	_, ok := table.FindString[strKey, strVal](tb, "one", k1.h)
	assert.False(t, ok)

	found, ok := table.FindString[strKey, strVal](tb, "two", k2.h)
	require.True(t, ok)
	assert.Equal(t, k2, found)
}

func TestRemoveWhite(t *testing.T) {
	tb := newTable()
	marked := newKey("keep")
	unmarked := newKey("drop")
	tb.Set(marked, "1")
	tb.Set(unmarked, "2")

	table.RemoveWhite[strKey, strVal](tb, func(k strKey) bool { return k.s == "keep" })

	_, ok := tb.Get(marked)
	assert.True(t, ok)
	_, ok = tb.Get(unmarked)
	assert.False(t, ok)
}

func TestCountExcludesTombstones(t *testing.T) {
	tb := newTable()
	tb.Set(newKey("a"), "1")
	tb.Set(newKey("b"), "2")
	tb.Delete(newKey("a"))
	assert.Equal(t, 1, tb.Count())
}

func TestEmptyTableLookupsDoNotPanic(t *testing.T) {
	tb := newTable()
	_, ok := tb.Get(newKey("anything"))
	assert.False(t, ok)
	ok = tb.Delete(newKey("anything"))
	assert.False(t, ok)
}
