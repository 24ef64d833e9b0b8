package bitset

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestSetHasClear(t *testing.T) {
	b := New()
	assert.Equal(t, b.Has(5), false)
	b.Set(5)
	assert.Equal(t, b.Has(5), true)
	b.Clear(5)
	assert.Equal(t, b.Has(5), false)
}

func TestAutoGrow(t *testing.T) {
	b := New()
	b.Set(200)
	assert.Equal(t, b.Has(200), true)
	assert.Equal(t, b.Has(199), false)
}

func TestClearBeyondLengthIsNoop(t *testing.T) {
	b := New()
	b.Clear(1000) // must not panic
}

func TestContainsSuperset(t *testing.T) {
	a := FromBits(1, 2, 3)
	sub := FromBits(1, 3)
	assert.Equal(t, a.Contains(sub), true)
	assert.Equal(t, sub.Contains(a), false)
}

func TestOverlaps(t *testing.T) {
	a := FromBits(1, 2)
	b := FromBits(2, 3)
	c := FromBits(5, 6)
	assert.Equal(t, a.Overlaps(b), true)
	assert.Equal(t, a.Overlaps(c), false)
}

func TestIsEmpty(t *testing.T) {
	a := New()
	assert.Equal(t, a.IsEmpty(), true)
	a.Set(3)
	assert.Equal(t, a.IsEmpty(), false)
	a.Clear(3)
	assert.Equal(t, a.IsEmpty(), true)
}

func TestEqualsIgnoresSpareCapacity(t *testing.T) {
	a := FromBits(1, 2)
	b := FromBits(1, 2)
	b.Set(500)
	b.Clear(500) // grows b's backing array but leaves it bit-equal to a
	assert.Equal(t, a.Equals(b), true)
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHashStableAcrossEquivalentConstruction(t *testing.T) {
	a := FromBits(4, 9, 40)
	b := New()
	b.Set(40)
	b.Set(9)
	b.Set(4)
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestCopyIsIndependent(t *testing.T) {
	a := FromBits(1)
	b := a.Copy()
	b.Set(2)
	assert.Equal(t, a.Has(2), false)
}

func TestBitsSorted(t *testing.T) {
	a := FromBits(40, 1, 9)
	assert.DeepEqual(t, a.Bits(), []int{1, 9, 40})
}
