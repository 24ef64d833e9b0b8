package archetype

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/2khan/oecs/component"
)

func newTestRegistry(t *testing.T) (*Registry, *component.Registry, component.ID, component.ID) {
	t.Helper()
	compReg := component.NewRegistry()
	pos := compReg.Register(component.Schema{
		Name:   "Pos",
		Fields: []component.Field{{Name: "x", Type: component.F32}, {Name: "y", Type: component.F32}},
	})
	vel := compReg.Register(component.Schema{
		Name:   "Vel",
		Fields: []component.Field{{Name: "vx", Type: component.F32}, {Name: "vy", Type: component.F32}},
	})
	return NewRegistry(compReg), compReg, pos, vel
}

func TestEmptyArchetypeExistsOnConstruction(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)
	empty := r.Get(r.EmptyArchetype())
	assert.Equal(t, len(empty.Signature()), 0)
}

func TestGetOrCreateDedupesBySignature(t *testing.T) {
	r, _, pos, vel := newTestRegistry(t)
	id1, err := r.GetOrCreate([]component.ID{pos, vel})
	assert.NilError(t, err)
	id2, err := r.GetOrCreate([]component.ID{pos, vel})
	assert.NilError(t, err)
	assert.Equal(t, id1, id2)
}

func TestGetOrCreateDistinguishesDifferentSignatures(t *testing.T) {
	r, _, pos, vel := newTestRegistry(t)
	id1, _ := r.GetOrCreate([]component.ID{pos})
	id2, _ := r.GetOrCreate([]component.ID{pos, vel})
	assert.Assert(t, id1 != id2)
}

func TestResolveAddCachesBidirectionalEdge(t *testing.T) {
	r, _, pos, vel := newTestRegistry(t)
	posOnly, _ := r.GetOrCreate([]component.ID{pos})

	target, err := r.ResolveAdd(posOnly, vel)
	assert.NilError(t, err)
	a := r.Get(posOnly)
	e, ok := a.GetEdge(vel)
	assert.Equal(t, ok, true)
	assert.Equal(t, e.HasAdd, true)
	assert.Equal(t, e.Add, target)

	b := r.Get(target)
	be, ok := b.GetEdge(vel)
	assert.Equal(t, ok, true)
	assert.Equal(t, be.HasRemove, true)
	assert.Equal(t, be.Remove, posOnly)
}

func TestResolveAddAlreadyPresentIsIdentity(t *testing.T) {
	r, _, pos, vel := newTestRegistry(t)
	both, _ := r.GetOrCreate([]component.ID{pos, vel})
	target, err := r.ResolveAdd(both, pos)
	assert.NilError(t, err)
	assert.Equal(t, target, both)
}

func TestResolveRemoveIsInverseOfAdd(t *testing.T) {
	r, _, pos, vel := newTestRegistry(t)
	posOnly, _ := r.GetOrCreate([]component.ID{pos})
	both, err := r.ResolveAdd(posOnly, vel)
	assert.NilError(t, err)
	back, err := r.ResolveRemove(both, vel)
	assert.NilError(t, err)
	assert.Equal(t, back, posOnly)
}

func TestGetMatchingRespectsIncludeExcludeAnyOf(t *testing.T) {
	r, compReg, pos, vel := newTestRegistry(t)
	tag := compReg.Register(component.Schema{Name: "Dead"})

	posOnly, _ := r.GetOrCreate([]component.ID{pos})
	posVel, _ := r.GetOrCreate([]component.ID{pos, vel})
	posVelTag, _ := r.GetOrCreate([]component.ID{pos, vel, tag})

	matches := r.GetMatching([]component.ID{pos}, nil, nil)
	assert.Equal(t, len(matches), 3)

	matches = r.GetMatching([]component.ID{pos}, []component.ID{tag}, nil)
	assert.Equal(t, len(matches), 2)
	for _, a := range matches {
		assert.Assert(t, a.ID() != posVelTag)
	}

	matches = r.GetMatching([]component.ID{pos}, nil, []component.ID{tag})
	assert.Equal(t, len(matches), 1)
	assert.Equal(t, matches[0].ID(), posVelTag)

	_ = posOnly
	_ = posVel
}

func TestGetMatchingEmptyIncludeReturnsAll(t *testing.T) {
	r, _, pos, vel := newTestRegistry(t)
	r.GetOrCreate([]component.ID{pos})
	r.GetOrCreate([]component.ID{pos, vel})

	matches := r.GetMatching(nil, nil, nil)
	assert.Equal(t, len(matches), r.Count())
}

func TestSubscribeNotifiedOnNewArchetype(t *testing.T) {
	r, _, pos, vel := newTestRegistry(t)
	var created []ID
	r.Subscribe(func(a *Archetype) { created = append(created, a.ID()) })

	id, _ := r.GetOrCreate([]component.ID{pos, vel})
	assert.Equal(t, len(created), 1)
	assert.Equal(t, created[0], id)

	// Fetching the same signature again must not notify again.
	r.GetOrCreate([]component.ID{pos, vel})
	assert.Equal(t, len(created), 1)
}

func TestNEntitiesSameComponentsProduceOneArchetype(t *testing.T) {
	r, _, pos, vel := newTestRegistry(t)
	var ids []ID
	for i := 0; i < 10; i++ {
		id, err := r.GetOrCreate([]component.ID{pos, vel})
		assert.NilError(t, err)
		ids = append(ids, id)
	}
	for _, id := range ids[1:] {
		assert.Equal(t, id, ids[0])
	}
}
