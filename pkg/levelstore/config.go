package levelstore

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
)

// storeConfig holds the store settings read from the environment.
type storeConfig struct {
	// Prefix of every key the store writes.
	KeyPrefix string `env:"LEVELSTORE_KEY_PREFIX" envDefault:"LEVEL"`

	// Bytes of the in-process cache of loaded levels, 0 disables it.
	CacheSize int `env:"LEVELSTORE_CACHE_SIZE" envDefault:"0"`
}

func loadStoreConfig() (storeConfig, error) {
	cfg := storeConfig{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse levelstore config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate levelstore config")
	}

	return cfg, nil
}

func (cfg *storeConfig) validate() error {
	if cfg.CacheSize < 0 {
		return eris.Errorf("invalid cache size: %d (must not be negative)", cfg.CacheSize)
	}
	return validatePrefix(cfg.KeyPrefix)
}

func (cfg *storeConfig) applyToOptions(opt *StoreOptions) {
	opt.KeyPrefix = cfg.KeyPrefix
	opt.CacheSize = cfg.CacheSize
}

// StoreOptions configures a RedisStore. Zero fields keep the value from the environment.
type StoreOptions struct {
	KeyPrefix string // Prefix of every key
	CacheSize int    // Bytes of the level cache, levels above 1/1024 of it are never cached
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *StoreOptions) apply(newOpt StoreOptions) {
	if newOpt.KeyPrefix != "" {
		opt.KeyPrefix = newOpt.KeyPrefix
	}
	if newOpt.CacheSize != 0 {
		opt.CacheSize = newOpt.CacheSize
	}
}

// validate checks that all options are valid.
func (opt *StoreOptions) validate() error {
	if opt.CacheSize < 0 {
		return eris.Errorf("cache size must not be negative, got %d", opt.CacheSize)
	}
	return validatePrefix(opt.KeyPrefix)
}

func validatePrefix(prefix string) error {
	if prefix == "" {
		return eris.New("key prefix cannot be empty")
	}
	if strings.ContainsAny(prefix, ": ") {
		return eris.Errorf("invalid key prefix: %q (must not contain ':' or spaces)", prefix)
	}
	return nil
}
