package query

import (
	"sort"

	"github.com/2khan/oecs/archetype"
	"github.com/2khan/oecs/bitset"
	"github.com/2khan/oecs/component"
)

// Result is a live, reference-stable list of matching archetypes. The same
// Result pointer is returned for every request of an equivalent triple, and
// its Archetypes slice only ever grows.
type Result struct {
	Include []component.ID
	Exclude []component.ID
	AnyOf   []component.ID

	Archetypes []*archetype.Archetype

	includeMask *bitset.Bitset
	excludeMask *bitset.Bitset
	anyOfMask   *bitset.Bitset
	hasExclude  bool
	hasAnyOf    bool

	scratch [][]component.Column
}

func (r *Result) matches(a *archetype.Archetype) bool {
	if !a.Matches(r.Include) {
		return false
	}
	if r.hasExclude && signatureOverlapsMask(a.Signature(), r.excludeMask) {
		return false
	}
	if r.hasAnyOf && !signatureOverlapsMask(a.Signature(), r.anyOfMask) {
		return false
	}
	return true
}

func signatureOverlapsMask(signature []component.ID, mask *bitset.Bitset) bool {
	for _, c := range signature {
		if mask.Has(int(c)) {
			return true
		}
	}
	return false
}

// Engine converts (include, exclude, any_of) triples into live, cached,
// reference-stable Result arrays and keeps them updated as new archetypes
// are created.
type Engine struct {
	registry *archetype.Registry
	buckets  map[uint32][]*Result
}

// NewEngine returns an Engine backed by registry, subscribing to its
// archetype-creation notifications.
func NewEngine(registry *archetype.Registry) *Engine {
	e := &Engine{registry: registry, buckets: make(map[uint32][]*Result)}
	registry.Subscribe(e.onArchetypeCreated)
	return e
}

func (e *Engine) onArchetypeCreated(a *archetype.Archetype) {
	for _, results := range e.buckets {
		for _, r := range results {
			if r.matches(a) {
				r.Archetypes = append(r.Archetypes, a)
			}
		}
	}
}

func sortedUnique(ids []component.ID) []component.ID {
	if len(ids) == 0 {
		return nil
	}
	out := append([]component.ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	dedup := out[:1]
	for _, c := range out[1:] {
		if c != dedup[len(dedup)-1] {
			dedup = append(dedup, c)
		}
	}
	return dedup
}

func maskOf(ids []component.ID) *bitset.Bitset {
	if len(ids) == 0 {
		return bitset.New()
	}
	bits := make([]int, len(ids))
	for i, c := range ids {
		bits[i] = int(c)
	}
	return bitset.FromBits(bits...)
}

// cacheKey mixes the three mask hashes, folding in whether exclude/any_of
// were specified at all so that "no exclude" and "exclude=empty" remain
// distinguishable if that distinction is ever introduced upstream.
func cacheKey(include, exclude, anyOf *bitset.Bitset, hasExclude, hasAnyOf bool) uint32 {
	h := include.Hash()
	h = h*16777619 ^ exclude.Hash()
	h = h*16777619 ^ anyOf.Hash()
	if hasExclude {
		h ^= 0x9e3779b1
	}
	if hasAnyOf {
		h ^= 0x85ebca6b
	}
	return h
}

// Get returns the cached Result for (include, exclude, anyOf), creating and
// seeding it from the archetype registry on first request. exclude and
// anyOf may be nil to mean "unspecified".
func (e *Engine) Get(include, exclude, anyOf []component.ID) *Result {
	inc := sortedUnique(include)
	exc := sortedUnique(exclude)
	any := sortedUnique(anyOf)

	incMask, excMask, anyMask := maskOf(inc), maskOf(exc), maskOf(any)
	hasExc, hasAny := len(exclude) > 0, len(anyOf) > 0
	key := cacheKey(incMask, excMask, anyMask, hasExc, hasAny)

	for _, r := range e.buckets[key] {
		if maskTripleEqual(r, incMask, excMask, anyMask, hasExc, hasAny) {
			return r
		}
	}

	r := &Result{
		Include:     inc,
		Exclude:     exc,
		AnyOf:       any,
		includeMask: incMask,
		excludeMask: excMask,
		anyOfMask:   anyMask,
		hasExclude:  hasExc,
		hasAnyOf:    hasAny,
	}
	var excArg, anyArg []component.ID
	if hasExc {
		excArg = exc
	}
	if hasAny {
		anyArg = any
	}
	r.Archetypes = e.registry.GetMatching(inc, excArg, anyArg)
	e.buckets[key] = append(e.buckets[key], r)
	return r
}

func maskTripleEqual(r *Result, inc, exc, any *bitset.Bitset, hasExc, hasAny bool) bool {
	return r.hasExclude == hasExc && r.hasAnyOf == hasAny &&
		r.includeMask.Equals(inc) && r.excludeMask.Equals(exc) && r.anyOfMask.Equals(any)
}

// Filter returns every archetype ever created whose signature satisfies f.
// Unlike Get, this is not cached or live-subscribed: it is a one-shot scan,
// intended for ad-hoc composite matching via the ComponentFilter
// combinators rather than the hot per-tick query path.
func (e *Engine) Filter(f ComponentFilter) []*archetype.Archetype {
	var out []*archetype.Archetype
	for i := 0; i < e.registry.Count(); i++ {
		a := e.registry.Get(archetype.ID(i))
		if f.MatchesComponents(a.Signature()) {
			out = append(out, a)
		}
	}
	return out
}

// ForEachArchetype calls fn once per non-empty archetype in r, passing the
// row count and, for each component in components (in the given order), its
// field columns. The column-group slice is reused across calls on the same
// Result to avoid per-call allocation; it must not be retained by fn past
// the call.
func (r *Result) ForEachArchetype(components []component.ID, fn func(count int, columns [][]component.Column)) error {
	if cap(r.scratch) < len(components) {
		r.scratch = make([][]component.Column, len(components))
	}
	r.scratch = r.scratch[:len(components)]

	for _, a := range r.Archetypes {
		if a.IsEmpty() {
			continue
		}
		for i, c := range components {
			cols, err := a.Columns(c)
			if err != nil {
				return err
			}
			r.scratch[i] = cols
		}
		fn(a.Count(), r.scratch)
	}
	return nil
}
