package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Backend names accepted for the lock and notify sections.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNATS   = "nats"
)

// Config holds the full daemon configuration
type Config struct {
	// DataDir is where the bbolt database file lives
	DataDir string `mapstructure:"data_dir"`

	// Listen is the HTTP bind address for serve
	Listen string `mapstructure:"listen"`

	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Lock      LockConfig      `mapstructure:"lock"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// LogConfig controls log output
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// RedisConfig holds the Redis connection settings, used when either the
// lock or notify backend is redis
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig holds the NATS connection settings, used when either the
// lock or notify backend is nats
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// LockConfig selects the advisory lock backend
type LockConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// NotifyConfig selects the event delivery backend
type NotifyConfig struct {
	Backend string `mapstructure:"backend"`
}

// RelayConfig controls the websocket relay
type RelayConfig struct {
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

// ReconcileConfig controls the background counter sweep
type ReconcileConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Default returns the configuration used when no file or environment
// overrides are present. A bare `paddock serve` runs entirely
// self-contained on these: bbolt in /var/lib/paddock, in-process lock
// table and event broker, no external services.
func Default() Config {
	return Config{
		DataDir: "/var/lib/paddock",
		Listen:  ":8080",
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		NATS: NATSConfig{
			URL: "nats://127.0.0.1:4222",
		},
		Lock: LockConfig{
			Backend: BackendMemory,
			TTL:     5 * time.Minute,
		},
		Notify: NotifyConfig{
			Backend: BackendMemory,
		},
		Relay: RelayConfig{
			Heartbeat: 30 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Interval: 5 * time.Minute,
		},
	}
}

// Load reads configuration from the given file (or the default search
// path when path is empty), applies PADDOCK_* environment overrides on
// top, and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("paddock")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/paddock")
	}

	v.SetEnvPrefix("PADDOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file on the default search path is fine; an
		// explicitly named file must exist.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		))); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides bind even
// without a config file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("lock.backend", d.Lock.Backend)
	v.SetDefault("lock.ttl", d.Lock.TTL)
	v.SetDefault("notify.backend", d.Notify.Backend)
	v.SetDefault("relay.heartbeat", d.Relay.Heartbeat)
	v.SetDefault("reconcile.interval", d.Reconcile.Interval)
}

// Validate checks backend names and the settings they require.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	if c.Listen == "" {
		return errors.New("listen must be set")
	}

	if err := validBackend("lock.backend", c.Lock.Backend); err != nil {
		return err
	}
	if err := validBackend("notify.backend", c.Notify.Backend); err != nil {
		return err
	}

	if c.Lock.Backend == BackendRedis || c.Notify.Backend == BackendRedis {
		if c.Redis.Addr == "" {
			return errors.New("redis.addr must be set when a redis backend is selected")
		}
	}
	if c.Lock.Backend == BackendNATS || c.Notify.Backend == BackendNATS {
		if c.NATS.URL == "" {
			return errors.New("nats.url must be set when a nats backend is selected")
		}
	}

	if c.Lock.TTL < 0 {
		return fmt.Errorf("lock.ttl must not be negative, got %v", c.Lock.TTL)
	}
	if c.Relay.Heartbeat < 0 {
		return fmt.Errorf("relay.heartbeat must not be negative, got %v", c.Relay.Heartbeat)
	}
	if c.Reconcile.Interval < 0 {
		return fmt.Errorf("reconcile.interval must not be negative, got %v", c.Reconcile.Interval)
	}

	return nil
}

func validBackend(key, backend string) error {
	switch backend {
	case BackendMemory, BackendRedis, BackendNATS:
		return nil
	}
	return fmt.Errorf("%s must be one of memory, redis, nats; got %q", key, backend)
}
