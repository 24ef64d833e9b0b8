// Package archetype implements the archetype table: entities sharing an
// exact component set are grouped into one bucket with dense, row-aligned
// typed columns, a sparse-set membership index, and swap-and-pop removal.
package archetype

import (
	"github.com/rotisserie/eris"

	"github.com/2khan/oecs/component"
	"github.com/2khan/oecs/entity"
	"github.com/2khan/oecs/internal/assert"
)

// ID is a dense, non-negative archetype identifier.
type ID int

const (
	// DefaultDenseCapacity is the initial row capacity of a freshly created
	// archetype's columns and entity_ids array.
	DefaultDenseCapacity = 16
	// DefaultSparseCapacity is the initial length of index_to_row.
	DefaultSparseCapacity = 64

	// noRow is the sentinel stored in index_to_row for an absent slot.
	noRow = -1
)

var (
	// ErrNotInArchetype is raised when a structural operation references a
	// slot that is not currently a member of the archetype.
	ErrNotInArchetype = eris.New("archetype: entity slot not in archetype")
)

// Edge caches the resolved target archetype for adding or removing one
// component from this archetype's signature.
type Edge struct {
	Add       ID
	HasAdd    bool
	Remove    ID
	HasRemove bool
}

// Archetype is one component-set bucket.
type Archetype struct {
	id        ID
	signature []component.ID // sorted ascending, no duplicates

	entityIDs   []entity.ID
	indexToRow  []int // slot -> row, noRow if absent
	columns     [][]component.Column // columns[i][f] for signature[i], field f
	count       int
	denseCap    int

	edges map[component.ID]*Edge
}

// New constructs an empty archetype for the given sorted signature, using
// the default dense/sparse capacities. schemas must be parallel to
// signature (schemas[i] is the schema for signature[i]).
func New(id ID, signature []component.ID, schemas []component.Schema) *Archetype {
	return NewWithCapacity(id, signature, schemas, DefaultDenseCapacity, DefaultSparseCapacity)
}

// NewWithCapacity is New with caller-chosen initial dense/sparse capacities.
func NewWithCapacity(id ID, signature []component.ID, schemas []component.Schema, denseCap, sparseCap int) *Archetype {
	if denseCap < 1 {
		denseCap = 1
	}
	if sparseCap < 1 {
		sparseCap = 1
	}
	a := &Archetype{
		id:         id,
		signature:  append([]component.ID(nil), signature...),
		entityIDs:  make([]entity.ID, 0, denseCap),
		indexToRow: make([]int, sparseCap),
		columns:    make([][]component.Column, len(signature)),
		denseCap:   denseCap,
		edges:      make(map[component.ID]*Edge),
	}
	for i := range a.indexToRow {
		a.indexToRow[i] = noRow
	}
	for i, s := range schemas {
		cols := make([]component.Column, len(s.Fields))
		for f, field := range s.Fields {
			cols[f] = component.NewColumnFor(field.Type, denseCap)
		}
		a.columns[i] = cols
	}
	return a
}

// ID returns the archetype's identifier.
func (a *Archetype) ID() ID { return a.id }

// Signature returns the archetype's sorted component-ID signature. Callers
// must not mutate the returned slice.
func (a *Archetype) Signature() []component.ID { return a.signature }

// Count returns the number of live rows.
func (a *Archetype) Count() int { return a.count }

// IsEmpty reports whether the archetype currently has zero rows.
func (a *Archetype) IsEmpty() bool { return a.count == 0 }

// componentIndex returns the position of c within the signature, or -1.
func (a *Archetype) componentIndex(c component.ID) int {
	lo, hi := 0, len(a.signature)
	for lo < hi {
		mid := (lo + hi) / 2
		if a.signature[mid] < c {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(a.signature) && a.signature[lo] == c {
		return lo
	}
	return -1
}

// HasComponent reports whether c is in the archetype's signature.
func (a *Archetype) HasComponent(c component.ID) bool {
	return a.componentIndex(c) >= 0
}

// Matches reports whether every ID in required is present in the signature.
func (a *Archetype) Matches(required []component.ID) bool {
	for _, c := range required {
		if !a.HasComponent(c) {
			return false
		}
	}
	return true
}

// EntityAt returns the entity occupying row.
func (a *Archetype) EntityAt(row int) entity.ID { return a.entityIDs[row] }

// RowOf returns the row for slot, or -1 if slot is not a member.
func (a *Archetype) RowOf(slot uint32) int {
	if int(slot) >= len(a.indexToRow) {
		return noRow
	}
	return a.indexToRow[slot]
}

// GetColumn returns the backing column for field fieldIndex of component c.
// The returned Column may be invalidated by any subsequent structural
// mutation of the archetype (growth reallocates).
func (a *Archetype) GetColumn(c component.ID, fieldIndex int) (component.Column, error) {
	i := a.componentIndex(c)
	if i < 0 {
		return nil, eris.Wrapf(component.ErrUnknownComponent, "component=%d not in archetype %d", c, a.id)
	}
	cols := a.columns[i]
	if fieldIndex < 0 || fieldIndex >= len(cols) {
		return nil, eris.Wrapf(component.ErrUnknownComponent, "component=%d field=%d", c, fieldIndex)
	}
	return cols[fieldIndex], nil
}

// Columns returns every field column for component c, in schema field
// order.
func (a *Archetype) Columns(c component.ID) ([]component.Column, error) {
	i := a.componentIndex(c)
	if i < 0 {
		return nil, eris.Wrapf(component.ErrUnknownComponent, "component=%d not in archetype %d", c, a.id)
	}
	return a.columns[i], nil
}

// GetEdge returns the cached transition edge for component c.
func (a *Archetype) GetEdge(c component.ID) (*Edge, bool) {
	e, ok := a.edges[c]
	return e, ok
}

// SetAddEdge caches the target of adding c.
func (a *Archetype) SetAddEdge(c component.ID, target ID) {
	e := a.edges[c]
	if e == nil {
		e = &Edge{}
		a.edges[c] = e
	}
	e.Add, e.HasAdd = target, true
}

// SetRemoveEdge caches the target of removing c.
func (a *Archetype) SetRemoveEdge(c component.ID, target ID) {
	e := a.edges[c]
	if e == nil {
		e = &Edge{}
		a.edges[c] = e
	}
	e.Remove, e.HasRemove = target, true
}

func (a *Archetype) growSparse(n int) {
	if n <= len(a.indexToRow) {
		return
	}
	newCap := len(a.indexToRow)
	if newCap == 0 {
		newCap = 1
	}
	for newCap < n {
		newCap *= 2
	}
	next := make([]int, newCap)
	copy(next, a.indexToRow)
	for i := len(a.indexToRow); i < newCap; i++ {
		next[i] = noRow
	}
	a.indexToRow = next
}

func (a *Archetype) growDense() {
	a.denseCap *= 2
	for _, cols := range a.columns {
		for _, c := range cols {
			c.EnsureLen(a.denseCap)
		}
	}
}

// AddEntity appends id at the next free row, growing storage as needed, and
// returns the assigned row.
func (a *Archetype) AddEntity(id entity.ID, slot uint32) int {
	if a.count == a.denseCap {
		a.growDense()
	}
	if int(slot) >= len(a.indexToRow) {
		a.growSparse(int(slot) + 1)
	}
	row := a.count
	if row >= len(a.entityIDs) {
		a.entityIDs = append(a.entityIDs, id)
	} else {
		a.entityIDs[row] = id
	}
	a.indexToRow[slot] = row
	a.count++
	return row
}

// RemoveEntity removes slot's row via swap-and-pop. If a different entity
// occupied the last row and was moved into the vacated row, its slot is
// returned with moved=true.
func (a *Archetype) RemoveEntity(slot uint32) (movedSlot uint32, moved bool, err error) {
	if int(slot) >= len(a.indexToRow) || a.indexToRow[slot] == noRow {
		return 0, false, eris.Wrapf(ErrNotInArchetype, "slot=%d archetype=%d", slot, a.id)
	}
	row := a.indexToRow[slot]
	last := a.count - 1
	a.indexToRow[slot] = noRow

	if row != last {
		lastEntity := a.entityIDs[last]
		a.entityIDs[row] = lastEntity
		for _, cols := range a.columns {
			for _, c := range cols {
				c.CopyRow(c, last, row)
			}
		}
		lastSlot := lastEntity.Slot()
		assert.That(int(lastSlot) < len(a.indexToRow), "archetype: moved entity slot out of sparse range")
		a.indexToRow[lastSlot] = row
		movedSlot, moved = lastSlot, true
	}
	a.count--
	return movedSlot, moved, nil
}

// SharedFields calls fn once for every component present in both a's and
// b's signatures, in ascending component-ID order (a merge walk over both
// sorted signatures).
func SharedFields(a, b *Archetype, fn func(c component.ID, aIdx, bIdx int)) {
	i, j := 0, 0
	for i < len(a.signature) && j < len(b.signature) {
		switch {
		case a.signature[i] < b.signature[j]:
			i++
		case a.signature[i] > b.signature[j]:
			j++
		default:
			fn(a.signature[i], i, j)
			i++
			j++
		}
	}
}

// BuildSignature returns a new sorted signature equal to base with c
// inserted (base must not already contain c).
func BuildSignature(base []component.ID, c component.ID) []component.ID {
	out := make([]component.ID, 0, len(base)+1)
	inserted := false
	for _, id := range base {
		if !inserted && c < id {
			out = append(out, c)
			inserted = true
		}
		out = append(out, id)
	}
	if !inserted {
		out = append(out, c)
	}
	return out
}

// RemoveFromSignature returns a new sorted signature equal to base with c
// removed (base must contain c).
func RemoveFromSignature(base []component.ID, c component.ID) []component.ID {
	out := make([]component.ID, 0, len(base)-1)
	for _, id := range base {
		if id != c {
			out = append(out, id)
		}
	}
	return out
}

// EqualSignature reports whether x and y contain the same component IDs in
// the same order.
func EqualSignature(x, y []component.ID) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
