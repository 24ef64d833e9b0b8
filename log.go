package oecs

import (
	"github.com/rs/zerolog"

	"github.com/2khan/oecs/entity"
)

// Logger wraps a zerolog.Logger with log helpers shaped around Store state,
// so a caller can log archetype/entity/system details without reaching into
// Store internals directly.
type Logger struct {
	impl zerolog.Logger
}

// NewLogger wraps impl.
func NewLogger(impl zerolog.Logger) Logger {
	return Logger{impl: impl}
}

// WithSystem returns a sub-logger carrying a "system" field, for attributing
// log lines emitted while a particular system runs.
func (l Logger) WithSystem(name string) Logger {
	return Logger{impl: l.impl.With().Str("system", name).Logger()}
}

// LogArchetypes logs a summary line per archetype: id, signature, row count.
func (l Logger) LogArchetypes(s *Store, level zerolog.Level) {
	for i := 0; i < s.archetypes.Count(); i++ {
		a := s.archetypes.Get(archIDFromInt(i))
		l.impl.WithLevel(level).
			Int("archetype_id", i).
			Ints("signature", signatureAsInts(a.Signature())).
			Int("count", a.Count()).
			Msg("archetype")
	}
}

// LogSystems logs the name of every registered system. The phase is not
// logged.
func (l Logger) LogSystems(s *Store, level zerolog.Level) {
	for _, sys := range s.Scheduler.GetAllSystems() {
		l.impl.WithLevel(level).Str("system", sys.Name).Msg("system")
	}
}

// LogEntity logs an entity's liveness, slot, generation, and archetype.
func (l Logger) LogEntity(s *Store, level zerolog.Level, e entity.ID) {
	event := l.impl.WithLevel(level).
		Uint32("slot", e.Slot()).
		Uint16("generation", e.Generation()).
		Bool("alive", s.IsAlive(e))
	if s.IsAlive(e) {
		event = event.Int("archetype_id", int(s.entityArchetype[e.Slot()]))
	}
	event.Msg("entity")
}
