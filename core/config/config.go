// Package config loads the strata project configuration: database adapters,
// result cache settings and logging defaults.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/strata-analytics/strata/core/connectors"
	"github.com/strata-analytics/strata/core/shared/errors"
)

const (
	// DefaultConfigFile is looked up in the working directory first.
	DefaultConfigFile = "strata.yaml"
	// FallbackConfigFile is the hidden-file fallback.
	FallbackConfigFile = ".strata.yaml"

	// DefaultCacheTTL applies when the cache section does not set one.
	DefaultCacheTTL = 15 * time.Minute
)

var validate = validator.New()

// Adapter holds one database connection's settings. Either a verbatim DSN
// or the host/port/service/user/pass tuple must be provided.
type Adapter struct {
	Driver  string            `yaml:"driver" validate:"required,oneof=oracle postgres postgresql mysql"`
	DSN     string            `yaml:"dsn"`
	Host    string            `yaml:"host" validate:"required_without=DSN"`
	Port    int               `yaml:"port" validate:"required_without=DSN"`
	Service string            `yaml:"service" validate:"required_without=DSN"`
	User    string            `yaml:"user"`
	Pass    string            `yaml:"pass"`
	Options map[string]string `yaml:"options"`
}

// CacheConfig selects and sizes the step-result cache.
type CacheConfig struct {
	Backend  string `yaml:"backend" validate:"omitempty,oneof=memory redis"`
	URL      string `yaml:"url" validate:"required_if=Backend redis"`
	TTL      string `yaml:"ttl"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// TTLOrDefault parses the configured TTL; Load has already validated it.
func (c CacheConfig) TTLOrDefault() time.Duration {
	if c.TTL == "" {
		return DefaultCacheTTL
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return DefaultCacheTTL
	}
	return d
}

// LogConfig carries logging defaults; CLI flags override them.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=error warn info debug"`
	Tags  string `yaml:"tags"`
}

// Config is the root of strata.yaml.
type Config struct {
	Adapters map[string]Adapter `yaml:"adapters" validate:"required,min=1,dive"`
	Cache    CacheConfig        `yaml:"cache"`
	Log      LogConfig          `yaml:"log"`
}

// Load reads, substitutes and validates a config file. An empty path tries
// the default file name and then the hidden fallback. An explicit path
// that does not exist is retried by base name in the working directory,
// matching how analysts invoke the tool from case subfolders.
func Load(path string) (*Config, error) {
	data, resolved, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	substituted, err := SubstituteEnvVars(string(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidationError,
			"config '"+resolved+"'", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidationError,
			"cannot parse config '"+resolved+"'", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidationError,
			"invalid config '"+resolved+"'", err)
	}

	if cfg.Cache.TTL != "" {
		if _, err := time.ParseDuration(cfg.Cache.TTL); err != nil {
			return nil, errors.Wrap(errors.ErrCodeValidationError,
				"invalid cache.ttl in '"+resolved+"'", err)
		}
	}

	return &cfg, nil
}

func readConfigFile(path string) ([]byte, string, error) {
	if path == "" {
		for _, candidate := range []string{DefaultConfigFile, FallbackConfigFile} {
			data, err := os.ReadFile(candidate)
			if err == nil {
				return data, candidate, nil
			}
		}
		return nil, "", errors.Newf(errors.ErrCodeNotFound,
			"no config file found (tried %s and %s)", DefaultConfigFile, FallbackConfigFile)
	}

	data, err := os.ReadFile(path)
	if err == nil {
		return data, path, nil
	}
	if !os.IsNotExist(err) {
		return nil, "", errors.Wrap(errors.ErrCodeNotFound, "cannot read config '"+path+"'", err)
	}

	// Fallback: the bare file name relative to the working directory.
	fallback := filepath.Base(path)
	if fallback != path {
		if data, ferr := os.ReadFile(fallback); ferr == nil {
			return data, fallback, nil
		}
	}
	return nil, "", errors.Newf(errors.ErrCodeNotFound,
		"config file not found (tried %s and %s)", path, fallback)
}

// AdapterParams converts the adapter section into connector parameters.
func (c *Config) AdapterParams() map[string]connectors.Params {
	out := make(map[string]connectors.Params, len(c.Adapters))
	for name, a := range c.Adapters {
		out[name] = connectors.Params{
			Driver:  a.Driver,
			DSN:     a.DSN,
			Host:    a.Host,
			Port:    a.Port,
			Service: a.Service,
			User:    a.User,
			Pass:    a.Pass,
			Options: a.Options,
		}
	}
	return out
}

// Adapter returns the named adapter, or the only one when name is empty
// and exactly one is configured.
func (c *Config) Adapter(name string) (string, Adapter, error) {
	if name == "" {
		if len(c.Adapters) == 1 {
			for n, a := range c.Adapters {
				return n, a, nil
			}
		}
		return "", Adapter{}, errors.New(errors.ErrCodeInvalidInput,
			"multiple adapters configured; pick one with --adapter")
	}
	a, ok := c.Adapters[name]
	if !ok {
		return "", Adapter{}, errors.Newf(errors.ErrCodeAdapterNotFound,
			"adapter '%s' not found in config", name)
	}
	return name, a, nil
}
