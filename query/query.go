package query

import (
	"github.com/2khan/oecs/archetype"
	"github.com/2khan/oecs/component"
)

// Query is a builder over an Engine-cached Result. Each chaining call
// widens one of the three masks and re-resolves against the cache, so
// regardless of call order, the same final triple always yields the same
// underlying Result.
type Query struct {
	engine *Engine
	result *Result
}

// New returns a Query for the given include set, with no exclude/any_of
// constraints.
func New(engine *Engine, include ...component.ID) *Query {
	return &Query{engine: engine, result: engine.Get(include, nil, nil)}
}

// Result returns the live Result backing this query.
func (q *Query) Result() *Result { return q.result }

// Archetypes returns the query's current matching archetypes. The returned
// slice is the live backing array; callers must not mutate it.
func (q *Query) Archetypes() []*archetype.Archetype { return q.result.Archetypes }

// And widens the include set with additional required components.
func (q *Query) And(cs ...component.ID) *Query {
	return &Query{engine: q.engine, result: q.engine.Get(union(q.result.Include, cs), q.result.Exclude, q.result.AnyOf)}
}

// Not widens the exclude set with additional forbidden components.
func (q *Query) Not(cs ...component.ID) *Query {
	return &Query{engine: q.engine, result: q.engine.Get(q.result.Include, union(q.result.Exclude, cs), q.result.AnyOf)}
}

// Or widens the any_of set with additional optional components.
func (q *Query) Or(cs ...component.ID) *Query {
	return &Query{engine: q.engine, result: q.engine.Get(q.result.Include, q.result.Exclude, union(q.result.AnyOf, cs))}
}

// ForEachArchetype delegates to the underlying Result.
func (q *Query) ForEachArchetype(components []component.ID, fn func(count int, columns [][]component.Column)) error {
	return q.result.ForEachArchetype(components, fn)
}

func union(base []component.ID, add []component.ID) []component.ID {
	out := append([]component.ID(nil), base...)
	out = append(out, add...)
	return out
}
