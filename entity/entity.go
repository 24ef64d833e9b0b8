// Package entity implements the generational entity allocator: packed
// 32-bit IDs (a 20-bit slot plus a 12-bit generation), recycled on destroy,
// so that a stale ID can never alias a reused slot.
package entity

import "github.com/rotisserie/eris"

const (
	// SlotBits is the number of low bits of an ID used for the slot index.
	SlotBits = 20
	// GenerationBits is the number of high bits of an ID used for the generation.
	GenerationBits = 12

	// MaxSlots is the number of concurrently live slot indices the allocator
	// can hand out (slots 0..MaxSlots-1).
	MaxSlots = 1 << SlotBits
	// MaxGenerations is the modulus the generation counter wraps at.
	MaxGenerations = 1 << GenerationBits

	slotMask = MaxSlots - 1
)

var (
	// ErrCapacityOverflow is returned by Create when every slot up to
	// MaxSlots is already live.
	ErrCapacityOverflow = eris.New("entity: capacity overflow, slot space exhausted")
	// ErrGenerationOverflow is returned if a slot's generation counter would
	// need more than GenerationBits to represent. Generations wrap modulo
	// MaxGenerations on every destroy, so this is unreachable in practice;
	// it exists only so the taxonomy has a fatal error to raise if that
	// invariant is ever violated by a future change.
	ErrGenerationOverflow = eris.New("entity: generation overflow")
	// ErrDoubleDestroy is returned by Destroy when the ID is not alive.
	ErrDoubleDestroy = eris.New("entity: double destroy of a dead entity")
)

// ID is an opaque packed identity: low SlotBits bits are the slot index,
// high GenerationBits bits are the generation. Equality and hashing are on
// the full packed integer, so two IDs with the same slot but different
// generations are distinct values.
type ID uint32

// Pack builds an ID from a slot and a generation.
func Pack(slot uint32, generation uint16) ID {
	return ID(slot&slotMask) | ID(generation&(MaxGenerations-1))<<SlotBits
}

// Slot returns the low-bits slot index.
func (id ID) Slot() uint32 { return uint32(id) & slotMask }

// Generation returns the high-bits generation counter.
func (id ID) Generation() uint16 { return uint16(uint32(id) >> SlotBits) }

// Allocator hands out packed generational IDs and recycles destroyed slots.
type Allocator struct {
	generations []uint16 // one 12-bit-valued counter per slot, growable
	highWater   int      // number of slots ever handed a fresh (non-recycled) index
	free        []uint32 // LIFO stack of destroyed slots available for reuse
	liveCount   int
}

// NewAllocator returns an empty Allocator with initialCapacity pre-sized
// generation storage (rounded up to at least 1).
func NewAllocator(initialCapacity int) *Allocator {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Allocator{generations: make([]uint16, 0, initialCapacity)}
}

// Create allocates a new ID: a recycled slot if one is free, else the next
// unused slot (growing the generation table by doubling as needed).
func (a *Allocator) Create() (ID, error) {
	var slot uint32
	if n := len(a.free); n > 0 {
		slot = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if a.highWater >= MaxSlots {
			return 0, ErrCapacityOverflow
		}
		slot = uint32(a.highWater)
		a.highWater++
		if int(slot) >= len(a.generations) {
			a.growGenerations(int(slot) + 1)
		}
		a.generations[slot] = 0
	}
	a.liveCount++
	return Pack(slot, a.generations[slot]), nil
}

func (a *Allocator) growGenerations(n int) {
	if n <= len(a.generations) {
		return
	}
	newCap := cap(a.generations)
	if newCap == 0 {
		newCap = 1
	}
	for newCap < n {
		newCap *= 2
	}
	next := make([]uint16, n, newCap)
	copy(next, a.generations)
	a.generations = next
}

// Destroy invalidates id: the generation for its slot is bumped modulo
// MaxGenerations and the slot is returned to the free list. Returns
// ErrDoubleDestroy if id is not currently alive.
func (a *Allocator) Destroy(id ID) error {
	if !a.IsAlive(id) {
		return ErrDoubleDestroy
	}
	slot := id.Slot()
	a.generations[slot] = (a.generations[slot] + 1) % MaxGenerations
	a.free = append(a.free, slot)
	a.liveCount--
	return nil
}

// IsAlive reports whether id refers to a currently live entity.
func (a *Allocator) IsAlive(id ID) bool {
	slot := id.Slot()
	if int(slot) >= len(a.generations) {
		return false
	}
	return a.generations[slot] == id.Generation()
}

// LiveCount returns the number of currently live entities.
func (a *Allocator) LiveCount() int {
	return a.liveCount
}
