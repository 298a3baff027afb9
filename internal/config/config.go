package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// DefaultExamples are the goals offered on the welcome screen.
var DefaultExamples = []string{
	"Search for the latest news about AI",
	"Find the weather forecast for New York",
	"Look up the top-rated restaurants nearby",
	"Open https://example.com and summarize the page",
}

// Config holds application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	UI      UIConfig      `mapstructure:"ui"`
}

// ServerConfig points at the agent backend.
type ServerConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	TeardownTimeout time.Duration `mapstructure:"teardown_timeout"`
}

// SessionConfig controls where the credential is cached between page loads.
type SessionConfig struct {
	Store string        `mapstructure:"store"`
	ID    string        `mapstructure:"id"`
	TTL   time.Duration `mapstructure:"ttl"`
	Path  string        `mapstructure:"path"`
}

// RedisConfig is used when session.store is "redis".
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig holds logger settings. An empty path disables logging.
type LogConfig struct {
	Path   string `mapstructure:"path"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Examples []string `mapstructure:"examples"`
}

// Load reads configuration from file and env. Env var overrides use prefix AGENTDESK_.
func Load() (Config, error) {
	v := viper.New()
	home := os.Getenv("HOME")

	// default values
	v.SetDefault("server.base_url", "http://localhost:5000")
	v.SetDefault("server.request_timeout", time.Duration(0))
	v.SetDefault("server.teardown_timeout", 2*time.Second)
	v.SetDefault("session.store", StoreSQLite)
	v.SetDefault("session.id", "")
	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("session.path", filepath.Join(home, ".local", "share", "agentdesk", "session.db"))
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "agentdesk", "agentdesk.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ui.examples", DefaultExamples)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("AGENTDESK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "agentdesk"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("AGENTDESK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the client cannot start with.
func (c Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.base_url %q must be an http(s) URL", c.Server.BaseURL)
	}
	if c.Server.RequestTimeout < 0 || c.Server.TeardownTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	switch c.Session.Store {
	case StoreSQLite:
		if c.Session.Path == "" {
			return errors.New("session.path is required for the sqlite store")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown session.store %q", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	return nil
}
