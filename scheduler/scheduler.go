// Package scheduler implements the phase scheduler: systems are grouped
// into six fixed-order phases, each topologically sorted from explicit
// before/after ordering constraints with deterministic insertion-order
// tiebreaking, and a flush runs after every phase.
package scheduler

import (
	"container/heap"
	"sort"

	"github.com/rotisserie/eris"
)

// Phase is one of the six fixed lifecycle buckets systems execute in.
type Phase int

const (
	PreStartup Phase = iota
	Startup
	PostStartup
	PreUpdate
	Update
	PostUpdate

	phaseCount = int(PostUpdate) + 1
)

func (p Phase) String() string {
	switch p {
	case PreStartup:
		return "pre_startup"
	case Startup:
		return "startup"
	case PostStartup:
		return "post_startup"
	case PreUpdate:
		return "pre_update"
	case Update:
		return "update"
	case PostUpdate:
		return "post_update"
	default:
		return "unknown_phase"
	}
}

var (
	// ErrDuplicateSystem is returned by AddSystems when a system name is
	// already registered in any phase.
	ErrDuplicateSystem = eris.New("scheduler: duplicate system")
	// ErrSystemNotFound is returned by RemoveSystem for an unregistered name.
	ErrSystemNotFound = eris.New("scheduler: system not found")
	// ErrCyclicDependency is returned when a phase's before/after
	// constraints cannot be satisfied by any total order.
	ErrCyclicDependency = eris.New("scheduler: cyclic system dependency")
)

// System is one schedulable unit. Fn receives the per-run context and a
// delta time (zero during startup phases). Before and After name other
// systems in the same phase; an unresolvable name (not registered in that
// phase) is ignored.
type System[Ctx any] struct {
	Name   string
	Fn     func(ctx Ctx, dt float64) error
	Before []string
	After  []string
}

type entry[Ctx any] struct {
	system   System[Ctx]
	phase    Phase
	inserted int
}

// Scheduler runs systems for Ctx, a caller-supplied per-run context type
// (typically a handle into the store). FlushStructural and FlushDestroyed
// are invoked once, in that order, after every phase completes.
type Scheduler[Ctx any] struct {
	byName         map[string]*entry[Ctx]
	phases         [phaseCount][]*entry[Ctx]
	cache          [phaseCount][]*entry[Ctx]
	dirty          [phaseCount]bool
	nextInsertion  int
	FlushStructural func()
	FlushDestroyed  func()
}

// NewScheduler returns an empty Scheduler. flushStructural and
// flushDestroyed may be nil, in which case no flush runs between phases.
func NewScheduler[Ctx any](flushStructural, flushDestroyed func()) *Scheduler[Ctx] {
	s := &Scheduler[Ctx]{
		byName:          make(map[string]*entry[Ctx]),
		FlushStructural: flushStructural,
		FlushDestroyed:  flushDestroyed,
	}
	for p := range s.dirty {
		s.dirty[p] = true
	}
	return s
}

// AddSystems registers each system under phase. Fails with
// ErrDuplicateSystem (wrapping the offending name) if any name is already
// registered, in which case none of the batch is applied.
func (s *Scheduler[Ctx]) AddSystems(phase Phase, systems ...System[Ctx]) error {
	for _, sys := range systems {
		if _, ok := s.byName[sys.Name]; ok {
			return eris.Wrapf(ErrDuplicateSystem, "name=%s", sys.Name)
		}
	}
	for _, sys := range systems {
		e := &entry[Ctx]{system: sys, phase: phase, inserted: s.nextInsertion}
		s.nextInsertion++
		s.byName[sys.Name] = e
		s.phases[phase] = append(s.phases[phase], e)
	}
	s.dirty[phase] = true
	return nil
}

// RemoveSystem unregisters the named system.
func (s *Scheduler[Ctx]) RemoveSystem(name string) error {
	e, ok := s.byName[name]
	if !ok {
		return eris.Wrapf(ErrSystemNotFound, "name=%s", name)
	}
	delete(s.byName, name)
	list := s.phases[e.phase]
	for i, candidate := range list {
		if candidate == e {
			s.phases[e.phase] = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.dirty[e.phase] = true
	return nil
}

// HasSystem reports whether name is currently registered.
func (s *Scheduler[Ctx]) HasSystem(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// GetAllSystems returns every registered system across all phases, in
// insertion order.
func (s *Scheduler[Ctx]) GetAllSystems() []System[Ctx] {
	ordered := make([]*entry[Ctx], 0, len(s.byName))
	for _, e := range s.byName {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].inserted < ordered[j].inserted })
	out := make([]System[Ctx], len(ordered))
	for i, e := range ordered {
		out[i] = e.system
	}
	return out
}

// Clear removes every registered system from every phase.
func (s *Scheduler[Ctx]) Clear() {
	s.byName = make(map[string]*entry[Ctx])
	for p := range s.phases {
		s.phases[p] = nil
		s.cache[p] = nil
		s.dirty[p] = true
	}
}

// schedule computes (or returns the cached) topological order for phase,
// using Kahn's algorithm seeded with zero-indegree nodes in a min-heap keyed
// by insertion order.
func (s *Scheduler[Ctx]) schedule(phase Phase) ([]*entry[Ctx], error) {
	if !s.dirty[phase] {
		return s.cache[phase], nil
	}

	nodes := s.phases[phase]
	n := len(nodes)
	nameToIdx := make(map[string]int, n)
	for i, e := range nodes {
		nameToIdx[e.system.Name] = i
	}

	graph := make([][]int, n)
	indegree := make([]int, n)
	addEdge := func(from, to int) {
		graph[from] = append(graph[from], to)
		indegree[to]++
	}
	for i, e := range nodes {
		for _, beforeName := range e.system.Before {
			if j, ok := nameToIdx[beforeName]; ok {
				addEdge(i, j)
			}
		}
		for _, afterName := range e.system.After {
			if j, ok := nameToIdx[afterName]; ok {
				addEdge(j, i)
			}
		}
	}

	h := &tieHeap{}
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			heap.Push(h, tieItem{order: nodes[i].inserted, idx: i})
		}
	}

	result := make([]*entry[Ctx], 0, n)
	for h.Len() > 0 {
		item := heap.Pop(h).(tieItem)
		result = append(result, nodes[item.idx])
		for _, next := range graph[item.idx] {
			indegree[next]--
			if indegree[next] == 0 {
				heap.Push(h, tieItem{order: nodes[next].inserted, idx: next})
			}
		}
	}

	if len(result) != n {
		return nil, eris.Wrapf(ErrCyclicDependency, "phase=%s", phase)
	}

	s.cache[phase] = result
	s.dirty[phase] = false
	return result, nil
}

type tieItem struct {
	order int
	idx   int
}

type tieHeap []tieItem

func (h tieHeap) Len() int           { return len(h) }
func (h tieHeap) Less(i, j int) bool { return h[i].order < h[j].order }
func (h tieHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *tieHeap) Push(x any)        { *h = append(*h, x.(tieItem)) }
func (h *tieHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (s *Scheduler[Ctx]) runPhase(phase Phase, ctx Ctx, dt float64) error {
	ordered, err := s.schedule(phase)
	if err != nil {
		return err
	}
	for _, e := range ordered {
		if err := e.system.Fn(ctx, dt); err != nil {
			return eris.Wrapf(err, "system %s failed in phase %s", e.system.Name, phase)
		}
	}
	if s.FlushStructural != nil {
		s.FlushStructural()
	}
	if s.FlushDestroyed != nil {
		s.FlushDestroyed()
	}
	return nil
}

// RunStartup runs pre_startup, startup, and post_startup in order, flushing
// after each.
func (s *Scheduler[Ctx]) RunStartup(ctx Ctx) error {
	for _, phase := range []Phase{PreStartup, Startup, PostStartup} {
		if err := s.runPhase(phase, ctx, 0); err != nil {
			return err
		}
	}
	return nil
}

// RunUpdate runs pre_update, update, and post_update in order, flushing
// after each.
func (s *Scheduler[Ctx]) RunUpdate(ctx Ctx, dt float64) error {
	for _, phase := range []Phase{PreUpdate, Update, PostUpdate} {
		if err := s.runPhase(phase, ctx, dt); err != nil {
			return err
		}
	}
	return nil
}
