package oecs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/2khan/oecs/archetype"
	"github.com/2khan/oecs/component"
	"github.com/2khan/oecs/scheduler"
)

func f64Schema(name string, fields ...string) component.Schema {
	fs := make([]component.Field, len(fields))
	for i, f := range fields {
		fs[i] = component.Field{Name: f, Type: component.F64}
	}
	return component.Schema{Name: name, Fields: fs}
}

func i32Schema(name string, fields ...string) component.Schema {
	fs := make([]component.Field, len(fields))
	for i, f := range fields {
		fs[i] = component.Field{Name: f, Type: component.I32}
	}
	return component.Schema{Name: name, Fields: fs}
}

func TestMovementScenario(t *testing.T) {
	s := NewStore(DefaultConfig())
	pos := s.RegisterComponent(f64Schema("Pos", "x", "y"))
	vel := s.RegisterComponent(f64Schema("Vel", "vx", "vy"))

	positions := [][2]float64{{1, 2}, {3, 4}, {5, 6}}
	velocities := [][2]float64{{10, 20}, {30, 40}, {50, 60}}
	entities := make([]EntityID, 3)
	for i := range positions {
		e, err := s.CreateEntity()
		require.NoError(t, err)
		require.NoError(t, s.AddComponent(e, pos, []float64{positions[i][0], positions[i][1]}))
		require.NoError(t, s.AddComponent(e, vel, []float64{velocities[i][0], velocities[i][1]}))
		entities[i] = e
	}

	q := s.Query(pos, vel)
	const dt = 0.1
	err := q.ForEachArchetype([]ComponentHandle{pos, vel}, func(count int, columns [][]component.Column) {
		posCols, velCols := columns[0], columns[1]
		for row := 0; row < count; row++ {
			posCols[0].Set(row, posCols[0].Get(row)+velCols[0].Get(row)*dt)
			posCols[1].Set(row, posCols[1].Get(row)+velCols[1].Get(row)*dt)
		}
	})
	require.NoError(t, err)

	want := [][2]float64{{2, 4}, {6, 8}, {10, 12}}
	for i, e := range entities {
		x, _ := s.GetField(e, pos, 0)
		y, _ := s.GetField(e, pos, 1)
		require.Equal(t, want[i][0], x)
		require.Equal(t, want[i][1], y)
	}
}

func TestDeferredAddThenRemoveOrdering(t *testing.T) {
	for _, reversed := range []bool{false, true} {
		s := NewStore(DefaultConfig())
		pos := s.RegisterComponent(f64Schema("Pos", "x", "y"))
		tag := s.RegisterTag("Tag")

		e, err := s.CreateEntity()
		require.NoError(t, err)
		require.NoError(t, s.AddComponent(e, pos, []float64{1, 2}))

		if !reversed {
			s.AddComponentDeferred(e, tag, nil)
			s.RemoveComponentDeferred(e, tag)
		} else {
			s.RemoveComponentDeferred(e, tag)
			s.AddComponentDeferred(e, tag, nil)
		}
		s.Flush()

		has, err := s.HasComponent(e, tag)
		require.NoError(t, err)
		require.Falsef(t, has, "reversed=%v: expected tag absent after flush", reversed)
		x, _ := s.GetField(e, pos, 0)
		require.Equalf(t, float64(1), x, "reversed=%v: expected Pos preserved", reversed)
	}
}

func TestDeferredAddCopiesValuesFromReusedScratchBuffer(t *testing.T) {
	s := NewStore(DefaultConfig())
	vel := s.RegisterComponent(f64Schema("Vel", "vx", "vy"))

	entities := make([]EntityID, 3)
	for i := range entities {
		e, err := s.CreateEntity()
		require.NoError(t, err)
		entities[i] = e
	}

	// Simulate a system that reuses one scratch buffer across several
	// deferred adds queued in the same phase, clearing and refilling it
	// between calls.
	scratch := make([]float64, 2)
	for i, e := range entities {
		scratch[0] = float64(i)
		scratch[1] = float64(i * 10)
		s.AddComponentDeferred(e, vel, scratch)
	}
	s.Flush()

	for i, e := range entities {
		vx, err := s.GetField(e, vel, 0)
		require.NoError(t, err)
		vy, err := s.GetField(e, vel, 1)
		require.NoError(t, err)
		require.Equalf(t, float64(i), vx, "entity %d: vx clobbered by scratch buffer reuse", i)
		require.Equalf(t, float64(i*10), vy, "entity %d: vy clobbered by scratch buffer reuse", i)
	}
}

func TestSwapAndPopIntegrityAcrossFields(t *testing.T) {
	s := NewStore(DefaultConfig())
	data := s.RegisterComponent(i32Schema("Data", "a", "b", "c", "d", "e"))

	entities := make([]EntityID, 5)
	for i := 0; i < 5; i++ {
		e, err := s.CreateEntity()
		require.NoError(t, err)
		values := make([]float64, 5)
		for j := range values {
			values[j] = float64(10*i + j)
		}
		require.NoError(t, s.AddComponent(e, data, values))
		entities[i] = e
	}

	require.NoError(t, s.DestroyEntity(entities[0]))

	for i := 1; i < 5; i++ {
		for j := 0; j < 5; j++ {
			got, err := s.GetField(entities[i], data, j)
			require.NoError(t, err)
			require.Equal(t, float64(10*i+j), got)
		}
	}
}

func TestStaleIDRejection(t *testing.T) {
	s := NewStore(DefaultConfig())
	e1, err := s.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, s.DestroyEntity(e1))
	e2, err := s.CreateEntity()
	require.NoError(t, err)

	require.False(t, s.IsAlive(e1))
	require.True(t, s.IsAlive(e2))
	require.Equal(t, e1.Slot(), e2.Slot())
	require.Equal(t, e1.Generation()+1, e2.Generation())
}

func TestLiveQueryGrowthKeepsSameReference(t *testing.T) {
	s := NewStore(DefaultConfig())
	pos := s.RegisterComponent(f64Schema("Pos", "x", "y"))

	q := s.Query(pos)
	require.Len(t, q.Archetypes(), 0)
	result := q.Result()

	e, err := s.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, s.AddComponent(e, pos, []float64{1, 2}))

	require.Same(t, result, q.Result())
	require.Len(t, q.Archetypes(), 1)
	require.Equal(t, 1, q.Archetypes()[0].Count())
}

func TestCyclicSystemsRejectedAtStartup(t *testing.T) {
	s := NewStore(DefaultConfig())
	a := scheduler.System[*SystemContext]{
		Name:  "A",
		Fn:    func(ctx *SystemContext, dt float64) error { return nil },
		After: []string{"B"},
	}
	b := scheduler.System[*SystemContext]{
		Name:  "B",
		Fn:    func(ctx *SystemContext, dt float64) error { return nil },
		After: []string{"A"},
	}
	require.NoError(t, s.Scheduler.AddSystems(scheduler.Startup, a, b))

	err := s.RunStartup()
	require.Truef(t, errors.Is(err, scheduler.ErrCyclicDependency), "expected ErrCyclicDependency, got %v", err)
}

func TestAddComponentInPlaceWriteWhenAlreadyPresent(t *testing.T) {
	s := NewStore(DefaultConfig())
	pos := s.RegisterComponent(f64Schema("Pos", "x", "y"))
	e, _ := s.CreateEntity()
	_ = s.AddComponent(e, pos, []float64{1, 1})
	archBefore := s.entityArchetype[e.Slot()]

	_ = s.AddComponent(e, pos, []float64{9, 9})
	archAfter := s.entityArchetype[e.Slot()]
	require.Equalf(t, archBefore, archAfter, "expected re-adding an existing component to not change archetype")
	x, _ := s.GetField(e, pos, 0)
	require.Equal(t, float64(9), x)
}

func TestRemoveComponentNoOpWhenAbsent(t *testing.T) {
	s := NewStore(DefaultConfig())
	pos := s.RegisterComponent(f64Schema("Pos", "x", "y"))
	tag := s.RegisterTag("Tag")
	e, _ := s.CreateEntity()
	_ = s.AddComponent(e, pos, []float64{1, 1})

	require.NoError(t, s.RemoveComponent(e, tag))
	has, _ := s.HasComponent(e, tag)
	require.False(t, has)
}

func TestBatchAddComponentMovesEveryEntity(t *testing.T) {
	s := NewStore(DefaultConfig())
	pos := s.RegisterComponent(f64Schema("Pos", "x", "y"))
	vel := s.RegisterComponent(f64Schema("Vel", "vx", "vy"))

	var sourceArch archetype.ID
	entities := make([]EntityID, 3)
	for i := range entities {
		e, _ := s.CreateEntity()
		_ = s.AddComponent(e, pos, []float64{float64(i), float64(i)})
		entities[i] = e
		sourceArch = s.entityArchetype[e.Slot()]
	}

	require.NoError(t, s.BatchAddComponent(sourceArch, vel, []float64{1, 2}))

	for _, e := range entities {
		has, err := s.HasComponent(e, vel)
		require.NoError(t, err)
		require.True(t, has)
		vx, _ := s.GetField(e, vel, 0)
		require.Equal(t, float64(1), vx)
	}
}
