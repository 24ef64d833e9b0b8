package component

import (
	"github.com/rotisserie/eris"
)

// Registry is the component schema registry. Component IDs are assigned in
// registration order; each field of each registered schema is backed by its
// own flat column, indexed by entity slot (not by archetype row — archetype
// storage is a separate, denser mirror used for iteration).
type Registry struct {
	schemas []Schema
	columns [][]Column // columns[component][field]
	cap     int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register assigns the next dense ID to schema and allocates its columns.
// Registration order is significant: it determines the component's ID and
// therefore its position in every archetype signature.
func (r *Registry) Register(schema Schema) ID {
	id := ID(len(r.schemas))
	r.schemas = append(r.schemas, schema)

	cols := make([]Column, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = newColumn(f.Type, r.cap)
	}
	r.columns = append(r.columns, cols)
	return id
}

// Schema returns the schema registered under id.
func (r *Registry) Schema(id ID) (Schema, error) {
	if !r.valid(id) {
		return Schema{}, eris.Wrapf(ErrUnknownComponent, "id=%d", id)
	}
	return r.schemas[id], nil
}

// Count returns the number of registered components.
func (r *Registry) Count() int { return len(r.schemas) }

func (r *Registry) valid(id ID) bool {
	return id >= 0 && int(id) < len(r.schemas)
}

// EnsureCapacity grows every registered component's columns so slot n-1 is
// addressable. It must be called whenever the entity allocator grows past
// the registry's current capacity.
func (r *Registry) EnsureCapacity(n int) {
	if n <= r.cap {
		return
	}
	for _, cols := range r.columns {
		for _, c := range cols {
			c.EnsureLen(n)
		}
	}
	r.cap = n
}

// SetField writes value into field fieldIndex of component id at slot.
func (r *Registry) SetField(id ID, slot int, fieldIndex int, value float64) error {
	if !r.valid(id) {
		return eris.Wrapf(ErrUnknownComponent, "id=%d", id)
	}
	cols := r.columns[id]
	if fieldIndex < 0 || fieldIndex >= len(cols) {
		return eris.Wrapf(ErrUnknownComponent, "id=%d field=%d", id, fieldIndex)
	}
	cols[fieldIndex].Set(slot, value)
	return nil
}

// GetField reads field fieldIndex of component id at slot.
func (r *Registry) GetField(id ID, slot int, fieldIndex int) (float64, error) {
	if !r.valid(id) {
		return 0, eris.Wrapf(ErrUnknownComponent, "id=%d", id)
	}
	cols := r.columns[id]
	if fieldIndex < 0 || fieldIndex >= len(cols) {
		return 0, eris.Wrapf(ErrUnknownComponent, "id=%d field=%d", id, fieldIndex)
	}
	return cols[fieldIndex].Get(slot), nil
}

// Set writes every field of component id at slot from values, in schema
// field order.
func (r *Registry) Set(id ID, slot int, values []float64) error {
	if !r.valid(id) {
		return eris.Wrapf(ErrUnknownComponent, "id=%d", id)
	}
	cols := r.columns[id]
	if len(values) != len(cols) {
		return eris.Wrapf(ErrUnknownComponent, "id=%d expected %d values, got %d", id, len(cols), len(values))
	}
	for i, v := range values {
		cols[i].Set(slot, v)
	}
	return nil
}

// GetColumn returns the raw column for field fieldIndex of component id, for
// callers that need bulk/typed access rather than a single Get/Set.
func (r *Registry) GetColumn(id ID, fieldIndex int) (Column, error) {
	if !r.valid(id) {
		return nil, eris.Wrapf(ErrUnknownComponent, "id=%d", id)
	}
	cols := r.columns[id]
	if fieldIndex < 0 || fieldIndex >= len(cols) {
		return nil, eris.Wrapf(ErrUnknownComponent, "id=%d field=%d", id, fieldIndex)
	}
	return cols[fieldIndex], nil
}

// Clear poisons every field of component id at slot. It is called when an
// entity is destroyed or loses the component, so that a stray read through a
// stale row index surfaces an obviously-invalid value instead of stale data.
func (r *Registry) Clear(id ID, slot int) error {
	if !r.valid(id) {
		return eris.Wrapf(ErrUnknownComponent, "id=%d", id)
	}
	for _, c := range r.columns[id] {
		if slot < c.Len() {
			c.Poison(slot)
		}
	}
	return nil
}
