// Package config loads runtime configuration from defaults, an optional YAML
// file, a .env file and DONATION_NODES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"

	"donation-nodes/pkg/credentials"
	"donation-nodes/pkg/host"
)

const (
	EnvPrefix   = "DONATION_NODES"
	DefaultFile = "donation-nodes.yaml"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	API         APIConfig                   `mapstructure:"api"`
	Credentials map[string]CredentialConfig `mapstructure:"credentials"`
	Poll        PollConfig                  `mapstructure:"poll"`
	Store       StoreConfig                 `mapstructure:"store"`
	Server      ServerConfig                `mapstructure:"server"`
	Log         LogConfig                   `mapstructure:"log"`
	Instances   []InstanceConfig            `mapstructure:"instances"`
}

type APIConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type CredentialConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type PollConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	ErrorBackoff time.Duration `mapstructure:"error_backoff"`
	Tick         time.Duration `mapstructure:"tick"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type InstanceConfig struct {
	ID         string         `mapstructure:"id"`
	Workflow   string         `mapstructure:"workflow"`
	Node       string         `mapstructure:"node"`
	Parameters map[string]any `mapstructure:"parameters"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("poll.interval", 60*time.Second)
	v.SetDefault("poll.error_backoff", 120*time.Second)
	v.SetDefault("poll.tick", host.DefaultTick)
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3003"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Registered so AutomaticEnv can see them; viper lower-cases keys.
	for _, d := range credentials.Descriptors() {
		name := strings.ToLower(d.Name)
		v.SetDefault("credentials."+name+".api_key", "")
		v.SetDefault("credentials."+name+".base_url", "")
	}
}

// Load reads configuration. path may be empty, in which case DefaultFile is
// used if it exists.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Store.DatabaseURL == "" {
		cfg.Store.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.Store.RedisURL == "" {
		cfg.Store.RedisURL = os.Getenv("REDIS_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.Server.Addr, "server.addr"),
		positive(c.API.Timeout, "api.timeout"),
		positive(c.Poll.Interval, "poll.interval"),
		positive(c.Poll.ErrorBackoff, "poll.error_backoff"),
		positive(c.Poll.Tick, "poll.tick"),
		oneOf(c.Store.Driver, "store.driver", DriverMemory, DriverPostgres, DriverRedis),
		requiredFor(c.Store.Driver == DriverPostgres, c.Store.DatabaseURL, "store.database_url"),
		requiredFor(c.Store.Driver == DriverRedis, c.Store.RedisURL, "store.redis_url"),
		oneOf(c.Log.Format, "log.format", "json", "text"),
		validInstances(c.Instances),
	).Check()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func positive(d time.Duration, name string) vala.Checker {
	return func() (bool, string) {
		return d > 0, fmt.Sprintf("parameter %s must be positive, got %s", name, d)
	}
}

func oneOf(val, name string, allowed ...string) vala.Checker {
	return func() (bool, string) {
		for _, a := range allowed {
			if val == a {
				return true, ""
			}
		}
		return false, fmt.Sprintf("parameter %s must be one of %s, got %q", name, strings.Join(allowed, ", "), val)
	}
}

func requiredFor(when bool, val, name string) vala.Checker {
	return func() (bool, string) {
		return !when || val != "", fmt.Sprintf("parameter %s is required for the selected store", name)
	}
}

func validInstances(instances []InstanceConfig) vala.Checker {
	return func() (bool, string) {
		seen := make(map[string]bool, len(instances))
		for i, inst := range instances {
			if inst.ID == "" {
				return false, fmt.Sprintf("instances[%d] has no id", i)
			}
			if inst.Node == "" {
				return false, fmt.Sprintf("instance %s has no node type", inst.ID)
			}
			if seen[inst.ID] {
				return false, fmt.Sprintf("instance id %s is used more than once", inst.ID)
			}
			seen[inst.ID] = true
		}
		return true, ""
	}
}

// APIKeys returns configured credentials keyed by their canonical names.
// Entries without an api key are omitted.
func (c *Config) APIKeys() map[string]credentials.APIKey {
	out := make(map[string]credentials.APIKey)
	for name, cc := range c.Credentials {
		if cc.APIKey == "" {
			continue
		}
		if d, ok := lookupFold(name); ok {
			name = d
		}
		out[name] = credentials.APIKey{Key: cc.APIKey, BaseURL: cc.BaseURL}
	}
	return out
}

func lookupFold(name string) (string, bool) {
	for _, d := range credentials.Descriptors() {
		if strings.EqualFold(d.Name, name) {
			return d.Name, true
		}
	}
	return "", false
}

// HostInstances converts configured instances for the runtime.
func (c *Config) HostInstances() []host.Instance {
	out := make([]host.Instance, 0, len(c.Instances))
	for _, inst := range c.Instances {
		out = append(out, host.Instance{
			ID:         inst.ID,
			Workflow:   inst.Workflow,
			NodeType:   inst.Node,
			Parameters: inst.Parameters,
		})
	}
	return out
}

// Logger builds the process logger from the log section.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
