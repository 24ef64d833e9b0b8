// Package oecs is an in-memory, archetype-based entity component system:
// entities are grouped by their exact component set into archetypes with
// dense, column-oriented storage, queried live through the QueryEngine, and
// mutated either immediately or through a phase-scheduled deferred buffer.
package oecs

import (
	"github.com/rotisserie/eris"

	"github.com/2khan/oecs/archetype"
	"github.com/2khan/oecs/component"
	"github.com/2khan/oecs/entity"
	"github.com/2khan/oecs/query"
	"github.com/2khan/oecs/scheduler"
)

// ComponentHandle is the handle returned from registering a component or
// tag. It is a plain dense integer; strongly-typed wrappers around it are
// the façade's concern, not the core's.
type ComponentHandle = component.ID

// EntityID is an opaque packed (slot, generation) identity.
type EntityID = entity.ID

// ComponentValues pairs a component handle with the field values to write,
// used by the bulk AddComponents operation.
type ComponentValues struct {
	Component ComponentHandle
	Values    []float64
}

type deferredAdd struct {
	entity    EntityID
	component ComponentHandle
	values    []float64
}

type deferredRemove struct {
	entity    EntityID
	component ComponentHandle
}

// Store is the single owner of entity allocation, component schemas,
// archetype storage, live queries, and the deferred-mutation buffers. It is
// the root of the ECS core.
type Store struct {
	cfg Config

	allocator  *entity.Allocator
	components *component.Registry
	archetypes *archetype.Registry
	queries    *query.Engine

	entityArchetype []archetype.ID // slot -> archetype id

	Scheduler *scheduler.Scheduler[*SystemContext]

	addBuf     []deferredAdd
	removeBuf  []deferredRemove
	destroyBuf []EntityID

	logger Logger
}

// NewStore constructs an empty Store sized according to cfg, with the empty
// archetype already registered.
func NewStore(cfg Config) *Store {
	components := component.NewRegistry()
	s := &Store{
		cfg:             cfg,
		allocator:       entity.NewAllocator(cfg.InitialEntityCapacity),
		components:      components,
		archetypes:      archetype.NewRegistryWithCapacity(components, cfg.ArchetypeDenseCapacity, cfg.ArchetypeSparseCapacity),
		entityArchetype: make([]archetype.ID, 0, cfg.InitialEntityCapacity),
		addBuf:          make([]deferredAdd, 0, cfg.DeferredBufferCapacity),
		removeBuf:       make([]deferredRemove, 0, cfg.DeferredBufferCapacity),
		destroyBuf:      make([]EntityID, 0, cfg.DeferredBufferCapacity),
	}
	s.queries = query.NewEngine(s.archetypes)
	s.Scheduler = scheduler.NewScheduler[*SystemContext](s.FlushStructural, s.FlushDestroyed)
	return s
}

// Config returns the Store's configuration.
func (s *Store) Config() Config { return s.cfg }

// Logger returns the Store's current logger.
func (s *Store) Logger() Logger { return s.logger }

// SetLogger installs the Store's logger.
func (s *Store) SetLogger(l Logger) { s.logger = l }

// RegisterComponent registers a schema and returns its dense handle.
func (s *Store) RegisterComponent(schema component.Schema) ComponentHandle {
	return s.components.Register(schema)
}

// RegisterTag registers a zero-field schema named name and returns its
// handle.
func (s *Store) RegisterTag(name string) ComponentHandle {
	return s.components.Register(component.Schema{Name: name})
}

func (s *Store) ensureCapacity(n int) {
	if n <= len(s.entityArchetype) {
		return
	}
	newCap := cap(s.entityArchetype)
	if newCap == 0 {
		newCap = 1
	}
	for newCap < n {
		newCap *= 2
	}
	next := make([]archetype.ID, n, newCap)
	copy(next, s.entityArchetype)
	s.entityArchetype = next
	s.components.EnsureCapacity(n)
}

func (s *Store) setEntityArchetype(slot uint32, a archetype.ID) {
	s.ensureCapacity(int(slot) + 1)
	s.entityArchetype[slot] = a
}

func (s *Store) archetypeOf(e EntityID) *archetype.Archetype {
	return s.archetypes.Get(s.entityArchetype[e.Slot()])
}

// CreateEntity allocates a new entity in the empty archetype.
func (s *Store) CreateEntity() (EntityID, error) {
	id, err := s.allocator.Create()
	if err != nil {
		return 0, err
	}
	slot := id.Slot()
	emptyID := s.archetypes.EmptyArchetype()
	s.setEntityArchetype(slot, emptyID)
	s.archetypes.Get(emptyID).AddEntity(id, slot)
	return id, nil
}

// IsAlive reports whether e refers to a currently live entity.
func (s *Store) IsAlive(e EntityID) bool { return s.allocator.IsAlive(e) }

// EntityCount returns the number of currently live entities.
func (s *Store) EntityCount() int { return s.allocator.LiveCount() }

// ArchetypeCount returns the number of archetypes created so far.
func (s *Store) ArchetypeCount() int { return s.archetypes.Count() }

// HasComponent reports whether e currently has component c.
func (s *Store) HasComponent(e EntityID, c ComponentHandle) (bool, error) {
	if !s.IsAlive(e) {
		return false, eris.Wrapf(ErrDeadEntity, "entity=%v", e)
	}
	return s.archetypeOf(e).HasComponent(c), nil
}

func writeRow(a *archetype.Archetype, row int, c ComponentHandle, values []float64) error {
	cols, err := a.Columns(c)
	if err != nil {
		return err
	}
	if len(values) != len(cols) {
		return eris.Wrapf(component.ErrUnknownComponent, "component=%d expected %d values, got %d", c, len(cols), len(values))
	}
	for i, v := range values {
		cols[i].Set(row, v)
	}
	return nil
}

// AddComponent adds component c to e with the given field values. If e
// already has c, its fields are overwritten in place and no structural
// change occurs.
func (s *Store) AddComponent(e EntityID, c ComponentHandle, values []float64) error {
	if !s.IsAlive(e) {
		return eris.Wrapf(ErrDeadEntity, "entity=%v", e)
	}
	slot := e.Slot()
	a := s.archetypeOf(e)
	if a.HasComponent(c) {
		row := a.RowOf(slot)
		if err := writeRow(a, row, c, values); err != nil {
			return err
		}
		return s.components.Set(c, int(slot), values)
	}

	bID, err := s.archetypes.ResolveAdd(a.ID(), c)
	if err != nil {
		return err
	}
	b := s.archetypes.Get(bID)
	rowOld := a.RowOf(slot)
	rowNew := b.AddEntity(e, slot)

	var copyErr error
	archetype.SharedFields(a, b, func(shared ComponentHandle, _, _ int) {
		if copyErr != nil {
			return
		}
		aCols, err := a.Columns(shared)
		if err != nil {
			copyErr = err
			return
		}
		bCols, err := b.Columns(shared)
		if err != nil {
			copyErr = err
			return
		}
		for f := range aCols {
			bCols[f].CopyRow(aCols[f], rowOld, rowNew)
		}
	})
	if copyErr != nil {
		return copyErr
	}

	if err := writeRow(b, rowNew, c, values); err != nil {
		return err
	}
	if err := s.components.Set(c, int(slot), values); err != nil {
		return err
	}

	if _, _, err := a.RemoveEntity(slot); err != nil {
		return err
	}
	s.setEntityArchetype(slot, bID)
	return nil
}

// AddComponents adds every listed component to e in a single archetype
// move.
func (s *Store) AddComponents(e EntityID, adds []ComponentValues) error {
	if !s.IsAlive(e) {
		return eris.Wrapf(ErrDeadEntity, "entity=%v", e)
	}
	if len(adds) == 0 {
		return nil
	}
	slot := e.Slot()
	a := s.archetypeOf(e)

	target := append([]ComponentHandle(nil), a.Signature()...)
	for _, av := range adds {
		if !a.HasComponent(av.Component) {
			target = archetype.BuildSignature(target, av.Component)
		}
	}
	bID, err := s.archetypes.GetOrCreate(target)
	if err != nil {
		return err
	}
	b := s.archetypes.Get(bID)

	rowOld := a.RowOf(slot)
	rowNew := b.AddEntity(e, slot)

	var stepErr error
	archetype.SharedFields(a, b, func(shared ComponentHandle, _, _ int) {
		if stepErr != nil {
			return
		}
		aCols, err := a.Columns(shared)
		if err != nil {
			stepErr = err
			return
		}
		bCols, err := b.Columns(shared)
		if err != nil {
			stepErr = err
			return
		}
		for f := range aCols {
			bCols[f].CopyRow(aCols[f], rowOld, rowNew)
		}
	})
	if stepErr != nil {
		return stepErr
	}

	for _, av := range adds {
		if err := writeRow(b, rowNew, av.Component, av.Values); err != nil {
			return err
		}
		if err := s.components.Set(av.Component, int(slot), av.Values); err != nil {
			return err
		}
	}

	if _, _, err := a.RemoveEntity(slot); err != nil {
		return err
	}
	s.setEntityArchetype(slot, bID)
	return nil
}

// RemoveComponent removes component c from e. A no-op if e lacks c.
func (s *Store) RemoveComponent(e EntityID, c ComponentHandle) error {
	if !s.IsAlive(e) {
		return eris.Wrapf(ErrDeadEntity, "entity=%v", e)
	}
	slot := e.Slot()
	a := s.archetypeOf(e)
	if !a.HasComponent(c) {
		return nil
	}

	bID, err := s.archetypes.ResolveRemove(a.ID(), c)
	if err != nil {
		return err
	}
	b := s.archetypes.Get(bID)
	rowOld := a.RowOf(slot)
	rowNew := b.AddEntity(e, slot)

	var copyErr error
	archetype.SharedFields(a, b, func(shared ComponentHandle, _, _ int) {
		if copyErr != nil {
			return
		}
		aCols, err := a.Columns(shared)
		if err != nil {
			copyErr = err
			return
		}
		bCols, err := b.Columns(shared)
		if err != nil {
			copyErr = err
			return
		}
		for f := range aCols {
			bCols[f].CopyRow(aCols[f], rowOld, rowNew)
		}
	})
	if copyErr != nil {
		return copyErr
	}

	_ = s.components.Clear(c, int(slot))
	if _, _, err := a.RemoveEntity(slot); err != nil {
		return err
	}
	s.setEntityArchetype(slot, bID)
	return nil
}

// RemoveComponents removes every listed component from e in a single
// archetype move. Components e does not have are ignored.
func (s *Store) RemoveComponents(e EntityID, cs ...ComponentHandle) error {
	if !s.IsAlive(e) {
		return eris.Wrapf(ErrDeadEntity, "entity=%v", e)
	}
	slot := e.Slot()
	a := s.archetypeOf(e)

	target := append([]ComponentHandle(nil), a.Signature()...)
	present := make([]ComponentHandle, 0, len(cs))
	for _, c := range cs {
		if a.HasComponent(c) {
			target = archetype.RemoveFromSignature(target, c)
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return nil
	}
	bID, err := s.archetypes.GetOrCreate(target)
	if err != nil {
		return err
	}
	b := s.archetypes.Get(bID)

	rowOld := a.RowOf(slot)
	rowNew := b.AddEntity(e, slot)

	var copyErr error
	archetype.SharedFields(a, b, func(shared ComponentHandle, _, _ int) {
		if copyErr != nil {
			return
		}
		aCols, err := a.Columns(shared)
		if err != nil {
			copyErr = err
			return
		}
		bCols, err := b.Columns(shared)
		if err != nil {
			copyErr = err
			return
		}
		for f := range aCols {
			bCols[f].CopyRow(aCols[f], rowOld, rowNew)
		}
	})
	if copyErr != nil {
		return copyErr
	}

	for _, c := range present {
		_ = s.components.Clear(c, int(slot))
	}
	if _, _, err := a.RemoveEntity(slot); err != nil {
		return err
	}
	s.setEntityArchetype(slot, bID)
	return nil
}

// GetField reads field fieldIndex of component c on e.
func (s *Store) GetField(e EntityID, c ComponentHandle, fieldIndex int) (float64, error) {
	if !s.IsAlive(e) {
		return 0, eris.Wrapf(ErrDeadEntity, "entity=%v", e)
	}
	a := s.archetypeOf(e)
	row := a.RowOf(e.Slot())
	cols, err := a.Columns(c)
	if err != nil {
		return 0, err
	}
	if fieldIndex < 0 || fieldIndex >= len(cols) {
		return 0, eris.Wrapf(component.ErrUnknownComponent, "component=%d field=%d", c, fieldIndex)
	}
	return cols[fieldIndex].Get(row), nil
}

// SetField writes field fieldIndex of component c on e.
func (s *Store) SetField(e EntityID, c ComponentHandle, fieldIndex int, value float64) error {
	if !s.IsAlive(e) {
		return eris.Wrapf(ErrDeadEntity, "entity=%v", e)
	}
	a := s.archetypeOf(e)
	row := a.RowOf(e.Slot())
	cols, err := a.Columns(c)
	if err != nil {
		return err
	}
	if fieldIndex < 0 || fieldIndex >= len(cols) {
		return eris.Wrapf(component.ErrUnknownComponent, "component=%d field=%d", c, fieldIndex)
	}
	cols[fieldIndex].Set(row, value)
	return s.components.SetField(c, int(e.Slot()), fieldIndex, value)
}

// DestroyEntity immediately removes e from its archetype and recycles its
// slot.
func (s *Store) DestroyEntity(e EntityID) error {
	if !s.IsAlive(e) {
		return eris.Wrapf(ErrDeadEntity, "entity=%v", e)
	}
	slot := e.Slot()
	a := s.archetypeOf(e)
	for _, c := range a.Signature() {
		_ = s.components.Clear(c, int(slot))
	}
	if _, _, err := a.RemoveEntity(slot); err != nil {
		return err
	}
	return s.allocator.Destroy(e)
}

// DestroyEntityDeferred queues e for destruction on the next flush_destroyed.
func (s *Store) DestroyEntityDeferred(e EntityID) {
	s.destroyBuf = append(s.destroyBuf, e)
}

// AddComponentDeferred queues an add of c to e on the next flush_structural.
// values is copied into the buffer: a caller reusing a scratch slice across
// several deferred calls must not observe later writes reflected in earlier
// entries.
func (s *Store) AddComponentDeferred(e EntityID, c ComponentHandle, values []float64) {
	s.addBuf = append(s.addBuf, deferredAdd{entity: e, component: c, values: append([]float64(nil), values...)})
}

// RemoveComponentDeferred queues a removal of c from e on the next
// flush_structural.
func (s *Store) RemoveComponentDeferred(e EntityID, c ComponentHandle) {
	s.removeBuf = append(s.removeBuf, deferredRemove{entity: e, component: c})
}

// FlushStructural applies every deferred add, then every deferred remove,
// each group in its original buffer order. Entries whose entity died since
// being queued are silently skipped.
func (s *Store) FlushStructural() {
	adds, removes := s.addBuf, s.removeBuf
	s.addBuf = make([]deferredAdd, 0, cap(adds))
	s.removeBuf = make([]deferredRemove, 0, cap(removes))

	for _, add := range adds {
		if !s.IsAlive(add.entity) {
			continue
		}
		_ = s.AddComponent(add.entity, add.component, add.values)
	}
	for _, rm := range removes {
		if !s.IsAlive(rm.entity) {
			continue
		}
		_ = s.RemoveComponent(rm.entity, rm.component)
	}
}

// FlushDestroyed applies every deferred destroy. Already-dead entries are
// silently skipped (double-destroy safe).
func (s *Store) FlushDestroyed() {
	destroys := s.destroyBuf
	s.destroyBuf = make([]EntityID, 0, cap(destroys))
	for _, e := range destroys {
		if !s.IsAlive(e) {
			continue
		}
		_ = s.DestroyEntity(e)
	}
}

// Flush runs FlushStructural then FlushDestroyed.
func (s *Store) Flush() {
	s.FlushStructural()
	s.FlushDestroyed()
}

// RunStartup runs the scheduler's three startup phases once.
func (s *Store) RunStartup() error {
	return s.Scheduler.RunStartup(&SystemContext{store: s})
}

// RunUpdate runs the scheduler's three per-tick phases once.
func (s *Store) RunUpdate(dt float64) error {
	return s.Scheduler.RunUpdate(&SystemContext{store: s}, dt)
}

// Query returns a live, reference-stable query over every archetype whose
// signature is a superset of include.
func (s *Store) Query(include ...ComponentHandle) *query.Query {
	return query.New(s.queries, include...)
}

// Filter returns every archetype (live scan, not cached) matching f.
func (s *Store) Filter(f query.ComponentFilter) []*archetype.Archetype {
	return s.queries.Filter(f)
}

func slotsOf(entities []EntityID) []uint32 {
	out := make([]uint32, len(entities))
	for i, e := range entities {
		out[i] = e.Slot()
	}
	return out
}

// BatchAddComponent moves every entity of the source archetype to the
// result of adding c, in one pass, writing the same values to every moved
// entity. A no-op if the source archetype already has c.
func (s *Store) BatchAddComponent(sourceID archetype.ID, c ComponentHandle, values []float64) error {
	src := s.archetypes.Get(sourceID)
	if src.HasComponent(c) {
		return nil
	}
	n := src.Count()
	if n == 0 {
		return nil
	}

	dstID, err := s.archetypes.ResolveAdd(sourceID, c)
	if err != nil {
		return err
	}
	dst := s.archetypes.Get(dstID)

	movedEntities := make([]EntityID, n)
	for i := 0; i < n; i++ {
		movedEntities[i] = src.EntityAt(i)
	}

	for i, e := range movedEntities {
		slot := e.Slot()
		rowNew := dst.AddEntity(e, slot)

		var copyErr error
		archetype.SharedFields(src, dst, func(shared ComponentHandle, _, _ int) {
			if copyErr != nil {
				return
			}
			srcCols, err := src.Columns(shared)
			if err != nil {
				copyErr = err
				return
			}
			dstCols, err := dst.Columns(shared)
			if err != nil {
				copyErr = err
				return
			}
			for f := range srcCols {
				dstCols[f].CopyRow(srcCols[f], i, rowNew)
			}
		})
		if copyErr != nil {
			return copyErr
		}
		if err := writeRow(dst, rowNew, c, values); err != nil {
			return err
		}
		if err := s.components.Set(c, int(slot), values); err != nil {
			return err
		}
		s.setEntityArchetype(slot, dstID)
	}

	return truncateInReverse(src, slotsOf(movedEntities))
}

// BatchRemoveComponent moves every entity of the source archetype to the
// result of removing c, in one pass. A no-op if the source archetype lacks
// c.
func (s *Store) BatchRemoveComponent(sourceID archetype.ID, c ComponentHandle) error {
	src := s.archetypes.Get(sourceID)
	if !src.HasComponent(c) {
		return nil
	}
	n := src.Count()
	if n == 0 {
		return nil
	}

	dstID, err := s.archetypes.ResolveRemove(sourceID, c)
	if err != nil {
		return err
	}
	dst := s.archetypes.Get(dstID)

	movedEntities := make([]EntityID, n)
	for i := 0; i < n; i++ {
		movedEntities[i] = src.EntityAt(i)
	}

	for i, e := range movedEntities {
		slot := e.Slot()
		rowNew := dst.AddEntity(e, slot)

		var copyErr error
		archetype.SharedFields(src, dst, func(shared ComponentHandle, _, _ int) {
			if copyErr != nil {
				return
			}
			srcCols, err := src.Columns(shared)
			if err != nil {
				copyErr = err
				return
			}
			dstCols, err := dst.Columns(shared)
			if err != nil {
				copyErr = err
				return
			}
			for f := range srcCols {
				dstCols[f].CopyRow(srcCols[f], i, rowNew)
			}
		})
		if copyErr != nil {
			return copyErr
		}
		_ = s.components.Clear(c, int(slot))
		s.setEntityArchetype(slot, dstID)
	}

	return truncateInReverse(src, slotsOf(movedEntities))
}

// truncateInReverse removes every slot in slots from a, from last to first.
// Because every slot named is being removed, removing tail-first never
// triggers a swap: each removal's target row is already the current last
// row at the moment it is removed.
func truncateInReverse(a *archetype.Archetype, slots []uint32) error {
	for i := len(slots) - 1; i >= 0; i-- {
		if _, _, err := a.RemoveEntity(slots[i]); err != nil {
			return err
		}
	}
	return nil
}

func archIDFromInt(i int) archetype.ID { return archetype.ID(i) }

func signatureAsInts(sig []ComponentHandle) []int {
	out := make([]int, len(sig))
	for i, c := range sig {
		out[i] = int(c)
	}
	return out
}
