package oecs

import (
	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
)

// Config holds tunable capacities for a Store instance. Values can be set
// via environment variables with the specified defaults.
type Config struct {
	// InitialEntityCapacity sizes the entity allocator's generation table.
	InitialEntityCapacity int `env:"OECS_INITIAL_ENTITY_CAPACITY" envDefault:"1024"`

	// ArchetypeDenseCapacity sizes a freshly created archetype's row columns.
	ArchetypeDenseCapacity int `env:"OECS_ARCHETYPE_DENSE_CAPACITY" envDefault:"16"`

	// ArchetypeSparseCapacity sizes a freshly created archetype's
	// index_to_row sparse array.
	ArchetypeSparseCapacity int `env:"OECS_ARCHETYPE_SPARSE_CAPACITY" envDefault:"64"`

	// DeferredBufferCapacity pre-sizes the three deferred-mutation buffers.
	DeferredBufferCapacity int `env:"OECS_DEFERRED_BUFFER_CAPACITY" envDefault:"256"`
}

// DefaultConfig returns a Config with every field at its envDefault value,
// without reading the environment.
func DefaultConfig() Config {
	return Config{
		InitialEntityCapacity:   1024,
		ArchetypeDenseCapacity:  16,
		ArchetypeSparseCapacity: 64,
		DeferredBufferCapacity:  256,
	}
}

// LoadConfig loads a Config from environment variables, falling back to
// DefaultConfig's values for anything unset.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse oecs config")
	}
	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate oecs config")
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.InitialEntityCapacity <= 0 {
		return eris.New("initial entity capacity must be positive")
	}
	if cfg.ArchetypeDenseCapacity <= 0 {
		return eris.New("archetype dense capacity must be positive")
	}
	if cfg.ArchetypeSparseCapacity <= 0 {
		return eris.New("archetype sparse capacity must be positive")
	}
	if cfg.DeferredBufferCapacity < 0 {
		return eris.New("deferred buffer capacity must not be negative")
	}
	return nil
}
