// Package config loads the static bootstrap configuration from
// environment variables. Everything dynamic (endpoints, filter
// policies, schemas, global flags) lives in the configuration store
// and is managed by the configstore and registry packages.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Environment is the deployment mode of the process, separate from
// the ENV store prefix (which names the config tree root).
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the static bootstrap configuration.
type Config struct {
	// Env is the configuration tree root segment, e.g. "prod".
	Env string `validate:"required"`
	// Service is the second tree segment, e.g. "orders-gateway".
	Service string `validate:"required"`

	Environment Environment
	Port        int    `validate:"gt=0,lte=65535"`
	APIPrefix   string `validate:"required,startswith=/"`

	// ConfigDir is the directory backing the file config store.
	ConfigDir string `validate:"required"`
	// ConfigSeed, when set, points to a YAML seed file; the gateway
	// then runs on an in-memory store instead of watching ConfigDir.
	ConfigSeed string

	MongoURI      string `validate:"required"`
	MongoDatabase string `validate:"required"`

	EnumServiceURL string

	OTELEndpoint string
}

// Load reads configuration from environment variables, applying
// defaults for everything except ENV and SERVICE.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            os.Getenv("ENV"),
		Service:        os.Getenv("SERVICE"),
		Environment:    Production,
		Port:           8080,
		APIPrefix:      "/api",
		ConfigDir:      "./config-tree",
		ConfigSeed:     os.Getenv("CONFIG_SEED"),
		MongoURI:       "memory://",
		MongoDatabase:  "datagate",
		EnumServiceURL: os.Getenv("ENUM_SERVICE_URL"),
		OTELEndpoint:   os.Getenv("OTEL_EXPORTER_ENDPOINT"),
	}

	if v := os.Getenv("ENVIRONMENT"); v == string(Development) {
		cfg.Environment = Development
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("API_PREFIX"); v != "" {
		cfg.APIPrefix = v
	}
	if v := os.Getenv("CONFIG_DIR"); v != "" {
		cfg.ConfigDir = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.MongoDatabase = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration using struct tags. ENV and
// SERVICE are required; their absence is a fatal startup error.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				if fe.Field() == "Env" || fe.Field() == "Service" {
					return fmt.Errorf("required environment variable %s is not set", envVarFor(fe.Field()))
				}
			}
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func envVarFor(field string) string {
	switch field {
	case "Env":
		return "ENV"
	case "Service":
		return "SERVICE"
	default:
		return field
	}
}

// ServicePath returns the store path of the service subtree.
func (c *Config) ServicePath() string {
	return "/" + c.Env + "/" + c.Service
}

// EndpointsPath returns the store path of the endpoints subtree.
func (c *Config) EndpointsPath() string {
	return c.ServicePath() + "/endpoints"
}

// SchemasPath returns the store path of the schemas subtree.
func (c *Config) SchemasPath() string {
	return c.ServicePath() + "/schemas"
}

// GlobalsPath returns the store path of the cross-cutting flags.
func (c *Config) GlobalsPath() string {
	return "/" + c.Env + "/Globals"
}
