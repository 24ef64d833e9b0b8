package archetype

import (
	"hash/fnv"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/2khan/oecs/bitset"
	"github.com/2khan/oecs/component"
)

// SchemaLookup resolves a component ID to its registered schema. It is
// satisfied by *component.Registry; archetype depends only on this narrow
// interface so that registry construction never needs column storage.
type SchemaLookup interface {
	Schema(id component.ID) (component.Schema, error)
}

// Listener is notified whenever a new archetype is created, so that live
// query results can grow without polling.
type Listener func(a *Archetype)

// Registry deduplicates archetypes by signature, indexes them by component
// membership, and resolves add/remove transitions with a bidirectional edge
// cache.
type Registry struct {
	schemas SchemaLookup

	archetypes  []*Archetype
	buckets     map[uint32][]ID
	byComponent map[component.ID]map[ID]struct{}

	denseCap  int
	sparseCap int

	listeners []Listener

	emptyID ID
}

// NewRegistry constructs a Registry backed by schemas for component
// lookups, with the empty archetype pre-created and default archetype
// capacities.
func NewRegistry(schemas SchemaLookup) *Registry {
	return NewRegistryWithCapacity(schemas, DefaultDenseCapacity, DefaultSparseCapacity)
}

// NewRegistryWithCapacity is NewRegistry with caller-chosen initial
// dense/sparse capacities applied to every archetype it creates.
func NewRegistryWithCapacity(schemas SchemaLookup, denseCap, sparseCap int) *Registry {
	r := &Registry{
		schemas:     schemas,
		buckets:     make(map[uint32][]ID),
		byComponent: make(map[component.ID]map[ID]struct{}),
		denseCap:    denseCap,
		sparseCap:   sparseCap,
	}
	r.emptyID = r.mustCreate(nil)
	return r
}

// EmptyArchetype returns the ID of the archetype with no components, to
// which every newly created entity initially belongs.
func (r *Registry) EmptyArchetype() ID { return r.emptyID }

// Get returns the archetype for id. id must have been returned by this
// registry.
func (r *Registry) Get(id ID) *Archetype { return r.archetypes[id] }

// Count returns the number of distinct archetypes created so far.
func (r *Registry) Count() int { return len(r.archetypes) }

// Subscribe registers a listener invoked synchronously whenever a new
// archetype is created (including archetypes created as a side effect of
// resolving a transition).
func (r *Registry) Subscribe(l Listener) { r.listeners = append(r.listeners, l) }

// hashSignature is an FNV-1a hash over the signature's component IDs,
// each encoded as four little-endian bytes. It uses the same byte encoding
// as bitset.Hash, but hashes the ID list rather than bit words, so it does
// not equal the Hash of a Bitset holding the same IDs.
func hashSignature(sig []component.ID) uint32 {
	h := fnv.New32a()
	buf := make([]byte, 4)
	for _, c := range sig {
		v := uint32(c)
		buf[0] = byte(v)
		buf[1] = byte(v >> 8)
		buf[2] = byte(v >> 16)
		buf[3] = byte(v >> 24)
		_, _ = h.Write(buf)
	}
	return h.Sum32()
}

// GetOrCreate returns the archetype exactly matching the sorted signature,
// creating and registering it if no such archetype exists yet.
func (r *Registry) GetOrCreate(signature []component.ID) (ID, error) {
	h := hashSignature(signature)
	for _, candidate := range r.buckets[h] {
		if EqualSignature(r.archetypes[candidate].signature, signature) {
			return candidate, nil
		}
	}
	id, err := r.create(signature)
	if err != nil {
		return 0, err
	}
	r.buckets[h] = append(r.buckets[h], id)
	return id, nil
}

func (r *Registry) mustCreate(signature []component.ID) ID {
	id, err := r.create(signature)
	if err != nil {
		panic(err)
	}
	h := hashSignature(signature)
	r.buckets[h] = append(r.buckets[h], id)
	return id
}

func (r *Registry) create(signature []component.ID) (ID, error) {
	schemas := make([]component.Schema, len(signature))
	for i, c := range signature {
		s, err := r.schemas.Schema(c)
		if err != nil {
			return 0, eris.Wrapf(err, "resolving schema for component %d", c)
		}
		schemas[i] = s
	}

	id := ID(len(r.archetypes))
	a := NewWithCapacity(id, signature, schemas, r.denseCap, r.sparseCap)
	r.archetypes = append(r.archetypes, a)

	for _, c := range signature {
		set, ok := r.byComponent[c]
		if !ok {
			set = make(map[ID]struct{})
			r.byComponent[c] = set
		}
		set[id] = struct{}{}
	}

	for _, l := range r.listeners {
		l(a)
	}
	return id, nil
}

// ResolveAdd returns the archetype reached by adding component c to the
// archetype at from, resolving and caching the transition edge on first
// use.
func (r *Registry) ResolveAdd(from ID, c component.ID) (ID, error) {
	a := r.archetypes[from]
	if a.HasComponent(c) {
		return from, nil
	}
	if e, ok := a.GetEdge(c); ok && e.HasAdd {
		return e.Add, nil
	}
	target := BuildSignature(a.signature, c)
	to, err := r.GetOrCreate(target)
	if err != nil {
		return 0, err
	}
	a.SetAddEdge(c, to)
	r.archetypes[to].SetRemoveEdge(c, from)
	return to, nil
}

// ResolveRemove returns the archetype reached by removing component c from
// the archetype at from, resolving and caching the transition edge on first
// use.
func (r *Registry) ResolveRemove(from ID, c component.ID) (ID, error) {
	a := r.archetypes[from]
	if !a.HasComponent(c) {
		return from, nil
	}
	if e, ok := a.GetEdge(c); ok && e.HasRemove {
		return e.Remove, nil
	}
	target := RemoveFromSignature(a.signature, c)
	to, err := r.GetOrCreate(target)
	if err != nil {
		return 0, err
	}
	a.SetRemoveEdge(c, to)
	r.archetypes[to].SetAddEdge(c, from)
	return to, nil
}

// GetMatching returns every archetype whose signature is a superset of
// include, disjoint from exclude (if non-nil), and intersecting any_of (if
// non-nil).
func (r *Registry) GetMatching(include, exclude, anyOf []component.ID) []*Archetype {
	var candidates []ID
	if len(include) == 0 {
		candidates = make([]ID, len(r.archetypes))
		for i := range r.archetypes {
			candidates[i] = ID(i)
		}
	} else {
		smallest := include[0]
		for _, c := range include[1:] {
			if len(r.byComponent[c]) < len(r.byComponent[smallest]) {
				smallest = c
			}
		}
		set := r.byComponent[smallest]
		if len(set) == 0 {
			return nil
		}
		candidates = make([]ID, 0, len(set))
		for id := range set {
			candidates = append(candidates, id)
		}
		// set is a map: iteration order is random. Archetype IDs are assigned
		// in creation order, so sorting ascending restores it.
		sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	}

	excludeSet := toBitset(exclude)
	anyOfSet := toBitset(anyOf)

	var out []*Archetype
	for _, id := range candidates {
		a := r.archetypes[id]
		if !a.Matches(include) {
			continue
		}
		if excludeSet != nil && signatureOverlaps(a.signature, excludeSet) {
			continue
		}
		if anyOfSet != nil && !signatureOverlaps(a.signature, anyOfSet) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func toBitset(ids []component.ID) *bitset.Bitset {
	if len(ids) == 0 {
		return nil
	}
	bits := make([]int, len(ids))
	for i, c := range ids {
		bits[i] = int(c)
	}
	return bitset.FromBits(bits...)
}

func signatureOverlaps(signature []component.ID, mask *bitset.Bitset) bool {
	for _, c := range signature {
		if mask.Has(int(c)) {
			return true
		}
	}
	return false
}
