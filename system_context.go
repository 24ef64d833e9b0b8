package oecs

import "github.com/2khan/oecs/query"

// SystemContext is passed to every scheduled system. CreateEntity and
// field access are immediate; structural mutations (AddComponent,
// RemoveComponent, DestroyEntity) are deferred until the scheduler's
// post-phase flush.
type SystemContext struct {
	store *Store
}

// CreateEntity allocates a new entity immediately; this cannot invalidate
// any archetype a running system is iterating, so it does not need to be
// deferred.
func (c *SystemContext) CreateEntity() (EntityID, error) {
	return c.store.CreateEntity()
}

// AddComponent queues a component add, applied on the next flush.
func (c *SystemContext) AddComponent(e EntityID, comp ComponentHandle, values []float64) {
	c.store.AddComponentDeferred(e, comp, values)
}

// RemoveComponent queues a component removal, applied on the next flush.
func (c *SystemContext) RemoveComponent(e EntityID, comp ComponentHandle) {
	c.store.RemoveComponentDeferred(e, comp)
}

// DestroyEntity queues an entity destruction, applied after the next
// flush's structural phase.
func (c *SystemContext) DestroyEntity(e EntityID) {
	c.store.DestroyEntityDeferred(e)
}

// HasComponent reads the entity's current (not yet flushed) component set.
func (c *SystemContext) HasComponent(e EntityID, comp ComponentHandle) (bool, error) {
	return c.store.HasComponent(e, comp)
}

// GetField reads a field immediately.
func (c *SystemContext) GetField(e EntityID, comp ComponentHandle, fieldIndex int) (float64, error) {
	return c.store.GetField(e, comp, fieldIndex)
}

// SetField writes a field immediately.
func (c *SystemContext) SetField(e EntityID, comp ComponentHandle, fieldIndex int, value float64) error {
	return c.store.SetField(e, comp, fieldIndex, value)
}

// Query returns a live query, the same as Store.Query.
func (c *SystemContext) Query(include ...ComponentHandle) *query.Query {
	return c.store.Query(include...)
}

// Flush runs a manual flush from inside a system. Permitted, but any column
// reference the system cached before calling Flush is no longer valid
// afterward.
func (c *SystemContext) Flush() {
	c.store.Flush()
}
