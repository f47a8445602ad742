package ecs

import (
	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// managerConfig holds the storage tuning read from the environment.
type managerConfig struct {
	// Initial slot capacity of archetypes whose builder has no entity count.
	EntityCountHint int `env:"ECS_ENTITY_COUNT_HINT" envDefault:"1024"`

	// Number of entity index records allocated up front.
	IndexPoolPrealloc int `env:"ECS_INDEX_POOL_PREALLOC" envDefault:"0"`
}

// loadManagerConfig loads the configuration from environment variables.
func loadManagerConfig() (managerConfig, error) {
	cfg := managerConfig{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse ecs config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate ecs config")
	}

	return cfg, nil
}

// validate performs validation on the loaded configuration.
func (cfg *managerConfig) validate() error {
	if cfg.EntityCountHint <= 0 {
		return eris.Errorf("invalid entity count hint: %d (must be positive)", cfg.EntityCountHint)
	}
	if cfg.IndexPoolPrealloc < 0 {
		return eris.Errorf("invalid index pool prealloc: %d (must not be negative)", cfg.IndexPoolPrealloc)
	}
	return nil
}

func (cfg *managerConfig) applyToOptions(opt *ManagerOptions) {
	opt.EntityCountHint = cfg.EntityCountHint
	opt.IndexPoolPrealloc = cfg.IndexPoolPrealloc
}

// ManagerOptions configures an EntityManager. Zero fields keep the value from the environment.
type ManagerOptions struct {
	Logger            *zerolog.Logger // Receives recoverable errors and fatal conditions
	EntityCountHint   int             // Default initial slot capacity of new archetypes
	IndexPoolPrealloc int             // Entity index records allocated up front
}

func newDefaultManagerOptions() ManagerOptions {
	// Leave the sizes invalid so the env config has to fill them in.
	return ManagerOptions{
		Logger:            nil,
		EntityCountHint:   0,
		IndexPoolPrealloc: 0,
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *ManagerOptions) apply(newOpt ManagerOptions) {
	if newOpt.Logger != nil {
		opt.Logger = newOpt.Logger
	}
	if newOpt.EntityCountHint != 0 {
		opt.EntityCountHint = newOpt.EntityCountHint
	}
	if newOpt.IndexPoolPrealloc != 0 {
		opt.IndexPoolPrealloc = newOpt.IndexPoolPrealloc
	}
}

// validate checks that all required options are set and valid.
func (opt *ManagerOptions) validate() error {
	if opt.EntityCountHint <= 0 {
		return eris.Errorf("entity count hint must be positive, got %d", opt.EntityCountHint)
	}
	if opt.IndexPoolPrealloc < 0 {
		return eris.Errorf("index pool prealloc must not be negative, got %d", opt.IndexPoolPrealloc)
	}
	return nil
}
