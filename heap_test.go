package candy

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapTrackDupDrop(t *testing.T) {
	h := NewHeap()
	s := h.Track(&StructValue{Keys: []Value{TextValue{Value: "0"}}, Values: []Value{IntValue{Value: big.NewInt(1)}}}).(*StructValue)

	assert.Equal(t, 1, h.refcounts[s])
	h.Dup(s)
	assert.Equal(t, 2, h.refcounts[s])
	h.Drop(s)
	assert.Equal(t, 1, h.refcounts[s])
	h.Drop(s)
	_, stillTracked := h.refcounts[s]
	assert.False(t, stillTracked)
}

func TestHeapDropRecursesIntoChildren(t *testing.T) {
	h := NewHeap()
	// A fresh StructValue starts at refcount 1, representing the single
	// reference embedding it directly into outer's Values takes over
	// (move semantics, matching how PushStruct pops already-owned stack
	// slots straight into a new struct's fields without an extra Dup).
	inner := h.Track(&StructValue{}).(*StructValue)
	outer := h.Track(&StructValue{Keys: []Value{TextValue{Value: "0"}}, Values: []Value{inner}}).(*StructValue)

	h.Drop(outer)

	_, outerTracked := h.refcounts[outer]
	_, innerTracked := h.refcounts[inner]
	assert.False(t, outerTracked)
	assert.False(t, innerTracked, "dropping outer to zero should recursively drop its only reference to inner")
}

func TestHeapDropKeepsSharedChildAliveUntilLastReference(t *testing.T) {
	h := NewHeap()
	inner := h.Track(&StructValue{}).(*StructValue)
	h.Dup(inner) // a second owner now holds inner directly, outside of any struct
	outer := h.Track(&StructValue{Keys: []Value{TextValue{Value: "0"}}, Values: []Value{inner}}).(*StructValue)

	h.Drop(outer)
	_, innerTracked := h.refcounts[inner]
	assert.True(t, innerTracked, "the second reference should keep inner alive")

	h.Drop(inner)
	_, innerTracked = h.refcounts[inner]
	assert.False(t, innerTracked)
}

func TestHeapDupDropPortsAdjustChannelRefcounts(t *testing.T) {
	h := NewHeap()
	h.NotifyPortCreated(ChannelID(1))
	assert.Equal(t, 1, h.channelRefcounts[ChannelID(1)])

	h.Dup(SendPortValue{Channel: 1})
	assert.Equal(t, 2, h.channelRefcounts[ChannelID(1)])

	removed := h.DropChannel(ChannelID(1))
	assert.False(t, removed)
	removed = h.DropChannel(ChannelID(1))
	assert.True(t, removed)
}

func TestHeapCloneValueIsolatesStructs(t *testing.T) {
	src := NewHeap()
	original := src.Track(&StructValue{Keys: []Value{TextValue{Value: "0"}}, Values: []Value{IntValue{Value: big.NewInt(42)}}}).(*StructValue)

	dst := NewHeap()
	cloned := dst.CloneValue(original)

	clonedStruct, ok := cloned.(*StructValue)
	require.True(t, ok)
	assert.NotSame(t, original, clonedStruct)
	assert.True(t, valuesEqual(original, clonedStruct))
	assert.Equal(t, 1, dst.refcounts[clonedStruct])
	assert.NotContains(t, dst.refcounts, original)
}

func TestHeapCloneValuePreservesSharedStructure(t *testing.T) {
	src := NewHeap()
	shared := src.Track(&StructValue{}).(*StructValue)
	root := src.Track(&StructValue{
		Keys:   []Value{TextValue{Value: "0"}, TextValue{Value: "1"}},
		Values: []Value{shared, shared},
	}).(*StructValue)

	dst := NewHeap()
	cloned := dst.CloneValue(root).(*StructValue)

	assert.Same(t, cloned.Values[0], cloned.Values[1], "both references to the shared child should clone to the same object")
	assert.Equal(t, 2, dst.refcounts[cloned.Values[0]])
}

func TestHeapAdoptMergesAndClearsOther(t *testing.T) {
	a := NewHeap()
	b := NewHeap()
	shared := a.Track(&StructValue{}).(*StructValue)
	b.refcounts[shared] = 3
	b.channelRefcounts[ChannelID(5)] = 2

	a.Adopt(b)

	assert.Equal(t, 4, a.refcounts[shared])
	assert.Equal(t, 2, a.channelRefcounts[ChannelID(5)])
	assert.Empty(t, b.refcounts)
	assert.Empty(t, b.channelRefcounts)
}

func TestHeapResetAndDropAllUnreferenced(t *testing.T) {
	h := NewHeap()
	keep := h.Track(&StructValue{}).(*StructValue)
	leak := h.Track(&StructValue{}).(*StructValue)

	h.ResetReferenceCounts()
	h.Dup(keep) // simulate re-marking `keep` as reachable from a root set

	h.DropAllUnreferenced()

	assert.Contains(t, h.refcounts, keep)
	assert.NotContains(t, h.refcounts, leak)
}
