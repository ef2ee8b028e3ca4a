// Package config loads restifier.yml with viper. Every key can be overridden
// from the environment with the RESTIFIER_ prefix, e.g. RESTIFIER_SERVER_PORT.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/conduit-lang/restifier/internal/orm/schema"
	"github.com/spf13/viper"
)

// DefaultFile is read when no path is given
const DefaultFile = "restifier.yml"

// Supported store drivers
var Drivers = []string{"memory", "sqlite3", "postgres", "postgresql", "pgx", "redis"}

// Config is the complete application configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Store     StoreConfig      `mapstructure:"store"`
	Log       LogConfig        `mapstructure:"log"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Resources []ResourceConfig `mapstructure:"resources"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	APIPrefix       string        `mapstructure:"api_prefix"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Concurrency bounds the documents transformed in parallel per request
	Concurrency int `mapstructure:"concurrency"`
}

// Address returns host:port
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StoreConfig selects and configures the document store
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	// DSN is the database/sql data source for sqlite3, postgres and pgx
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

// RedisConfig configures the redis store
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LogConfig configures zap
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ResourceConfig declares one resource
type ResourceConfig struct {
	Name       string           `mapstructure:"name"`
	Collection string           `mapstructure:"collection"`
	Identifier string           `mapstructure:"identifier"`
	Limit      int              `mapstructure:"limit"`
	Fields     []FieldConfig    `mapstructure:"fields"`
	Submodels  []SubmodelConfig `mapstructure:"submodels"`
}

// FieldConfig declares one field of a resource
type FieldConfig struct {
	Name       string `mapstructure:"name"`
	Type       string `mapstructure:"type"`
	Restricted bool   `mapstructure:"restricted"`
	ID         bool   `mapstructure:"id"`
	Unique     bool   `mapstructure:"unique"`
	Ref        string `mapstructure:"ref"`
	Many       bool   `mapstructure:"many"`
}

// SubmodelConfig nests another declared resource under this one
type SubmodelConfig struct {
	Path          string `mapstructure:"path"`
	Resource      string `mapstructure:"resource"`
	CorrespondsTo string `mapstructure:"corresponds_to"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.api_prefix", "")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.concurrency", 8)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.max_open_conns", 25)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", "1h")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.prefix", "restifier:")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads the configuration. An empty path looks for restifier.yml in the
// working directory; a missing default file leaves the defaults in place.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RESTIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for errors a server cannot start with
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if p := c.Server.APIPrefix; p != "" {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("server.api_prefix must start with '/', got: %s", p)
		}
		if strings.HasSuffix(p, "/") {
			return fmt.Errorf("server.api_prefix must not end with '/', got: %s", p)
		}
	}
	if !contains(Drivers, c.Store.Driver) {
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}
	if c.Store.Driver != "memory" && c.Store.Driver != "redis" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got: %s", c.Metrics.Path)
	}
	return c.validateResources()
}

func (c *Config) validateResources() error {
	names := make(map[string]bool, len(c.Resources))
	for i, r := range c.Resources {
		if r.Name == "" {
			return fmt.Errorf("resources[%d]: name is required", i)
		}
		if names[r.Name] {
			return fmt.Errorf("resources[%d]: resource %s is declared twice", i, r.Name)
		}
		names[r.Name] = true

		if r.Limit < 0 {
			return fmt.Errorf("resource %s: limit must not be negative", r.Name)
		}
		for _, f := range r.Fields {
			if f.Name == "" {
				return fmt.Errorf("resource %s: field name is required", r.Name)
			}
			typ, err := schema.ParseFieldType(f.Type)
			if err != nil {
				return fmt.Errorf("resource %s: field %s: %w", r.Name, f.Name, err)
			}
			if typ == schema.TypeRef && f.Ref == "" {
				return fmt.Errorf("resource %s: field %s: ref fields need a target collection", r.Name, f.Name)
			}
		}
	}

	for _, r := range c.Resources {
		for _, sub := range r.Submodels {
			if !names[sub.Resource] {
				return fmt.Errorf("resource %s: sub-resource %s is not declared", r.Name, sub.Resource)
			}
			if sub.CorrespondsTo == "" {
				return fmt.Errorf("resource %s: sub-resource %s needs corresponds_to", r.Name, sub.Resource)
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
