package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const EnvPrefix = "CHATHUB"

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	Secret     string        `mapstructure:"secret"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`

	Presence  PresenceConfig  `mapstructure:"presence"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Calls     CallsConfig     `mapstructure:"calls"`
	Signal    SignalConfig    `mapstructure:"signal"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	NATS      NATSConfig      `mapstructure:"nats"`
}

type PresenceConfig struct {
	GracePeriod time.Duration `mapstructure:"grace_period"`
	Shards      int           `mapstructure:"shards"`
}

type DispatchConfig struct {
	// Policy is drop or kick.
	Policy            string `mapstructure:"policy"`
	ParallelThreshold int    `mapstructure:"parallel_threshold"`
	MaxParallel       int    `mapstructure:"max_parallel"`
}

type CallsConfig struct {
	Retention time.Duration `mapstructure:"retention"`
}

type SignalConfig struct {
	// RequireIdentity rejects /api/ws/signal upgrades that carry no user.
	RequireIdentity bool `mapstructure:"require_identity"`
}

type RateLimitConfig struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type NATSConfig struct {
	// URL empty disables the bridge.
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

var defaults = map[string]any{
	"mode":                        "release",
	"port":                        8080,
	"secret":                      "change-me",
	"read_limit":                  32768,
	"ping_period":                 "54s",
	"pong_wait":                   "60s",
	"write_wait":                  "10s",
	"send_buffer":                 64,
	"presence.grace_period":       "5s",
	"presence.shards":             32,
	"dispatch.policy":             "drop",
	"dispatch.parallel_threshold": 64,
	"dispatch.max_parallel":       8,
	"calls.retention":             "1m",
	"signal.require_identity":     false,
	"ratelimit.limit":             30,
	"ratelimit.interval":          "1s",
	"log.level":                   "info",
	"log.format":                  "console",
	"metrics.enabled":             true,
	"nats.url":                    "",
	"nats.subject_prefix":         "chathub",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := newViper().Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev when unset) over the
// defaults; CHATHUB_* environment variables override both, e.g.
// CHATHUB_PRESENCE_GRACE_PERIOD=10s. A missing file is not an error.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v := newViper()
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Dur("grace", cfg.Presence.GracePeriod).
		Str("policy", cfg.Dispatch.Policy).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Mode == "release" || c.Mode == "debug" || c.Mode == "test", "mode must be release, debug or test, got %q", c.Mode)
	check(c.Port > 0 && c.Port < 65536, "port out of range: %d", c.Port)
	check(c.Secret != "", "secret is required")
	check(c.ReadLimit > 0, "read_limit must be positive")
	check(c.PongWait > 0, "pong_wait must be positive")
	check(c.PingPeriod > 0 && c.PingPeriod < c.PongWait, "ping_period must be positive and below pong_wait")
	check(c.WriteWait > 0, "write_wait must be positive")
	check(c.SendBuffer > 0, "send_buffer must be positive")
	check(c.Presence.GracePeriod > 0, "presence.grace_period must be positive")
	check(c.Presence.Shards > 0, "presence.shards must be positive")
	check(c.Dispatch.Policy == "drop" || c.Dispatch.Policy == "kick", "dispatch.policy must be drop or kick, got %q", c.Dispatch.Policy)
	check(c.Dispatch.ParallelThreshold > 0, "dispatch.parallel_threshold must be positive")
	check(c.Dispatch.MaxParallel > 0, "dispatch.max_parallel must be positive")
	check(c.Calls.Retention > 0, "calls.retention must be positive")
	check(c.RateLimit.Limit >= 0, "ratelimit.limit must not be negative")
	check(c.RateLimit.Limit == 0 || c.RateLimit.Interval > 0, "ratelimit.interval must be positive")
	_, lerr := zerolog.ParseLevel(c.Log.Level)
	check(lerr == nil, "log.level: %v", lerr)
	check(c.Log.Format == "console" || c.Log.Format == "json", "log.format must be console or json, got %q", c.Log.Format)
	check(c.NATS.URL == "" || c.NATS.SubjectPrefix != "", "nats.subject_prefix is required with nats.url")
	return errors.Join(errs...)
}
