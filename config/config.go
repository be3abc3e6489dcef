// Package config loads gamesessiond settings from a TOML file, GAMESESSION_*
// environment variables and built-in defaults, in that order of precedence
// below explicit environment values.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GAMESESSION_SERVER_ADDR.
const EnvPrefix = "GAMESESSION"

// Directory backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the complete daemon configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Directory DirectoryConfig `mapstructure:"directory"`
}

// ServerConfig configures the listener and the protocol.
type ServerConfig struct {
	Name         string        `mapstructure:"name"`
	Addr         string        `mapstructure:"addr"`
	Delimiter    string        `mapstructure:"delimiter"`
	MaxFrameSize int           `mapstructure:"max_frame_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	Replies      bool          `mapstructure:"replies"`
}

// LogConfig configures logging. An empty Dir logs to stdout only.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	Dir     string `mapstructure:"dir"`
}

// DirectoryConfig selects the cache behind identity lookups.
type DirectoryConfig struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Name:         "gamesession",
			Addr:         ":5555",
			Delimiter:    "|",
			MaxFrameSize: 64 * 1024,
			ReadTimeout:  2 * time.Minute,
			Replies:      true,
		},
		Log: LogConfig{
			Level:   "info",
			Console: false,
		},
		Directory: DirectoryConfig{
			Backend:   BackendMemory,
			TTL:       3 * time.Minute,
			KeyPrefix: "session:",
			RedisAddr: "localhost:6379",
		},
	}
}

// Load reads configuration into v and decodes it.
//
// Parameters:
//   - v: The viper instance to populate; nil creates a fresh one
//   - path: TOML file to read; empty skips the file
//
// Returns:
//   - The validated configuration
//   - An error if the file cannot be read or parsed, or validation fails
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config decode failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the configuration can be used to start the daemon.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch {
	case len(c.Server.Delimiter) != 1:
		errs = append(errs, fmt.Errorf("server.delimiter must be exactly one byte, got %q", c.Server.Delimiter))
	case c.Server.Delimiter[0] == 0:
		errs = append(errs, errors.New("server.delimiter must not be NUL; NUL pads fixed-width fields"))
	}
	if c.Server.MaxFrameSize < 0 {
		errs = append(errs, errors.New("server.max_frame_size must not be negative"))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, errors.New("server.read_timeout must not be negative"))
	}

	switch c.Directory.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Directory.RedisAddr == "" {
			errs = append(errs, errors.New("directory.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("directory.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Directory.Backend))
	}
	if c.Directory.TTL < 0 {
		errs = append(errs, errors.New("directory.ttl must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

// DelimiterByte returns the configured delimiter. Call it only on a
// validated Config.
func (c ServerConfig) DelimiterByte() byte {
	return c.Delimiter[0]
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.name", d.Server.Name)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.delimiter", d.Server.Delimiter)
	v.SetDefault("server.max_frame_size", d.Server.MaxFrameSize)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.replies", d.Server.Replies)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("directory.backend", d.Directory.Backend)
	v.SetDefault("directory.ttl", d.Directory.TTL)
	v.SetDefault("directory.key_prefix", d.Directory.KeyPrefix)
	v.SetDefault("directory.redis_addr", d.Directory.RedisAddr)
	v.SetDefault("directory.redis_password", d.Directory.RedisPassword)
	v.SetDefault("directory.redis_db", d.Directory.RedisDB)
}

// fileConfig is the on-disk layout; durations are written as strings such as
// "2m0s" so they read back through viper.
type fileConfig struct {
	Server struct {
		Name         string `toml:"name"`
		Addr         string `toml:"addr"`
		Delimiter    string `toml:"delimiter"`
		MaxFrameSize int    `toml:"max_frame_size"`
		ReadTimeout  string `toml:"read_timeout"`
		Replies      bool   `toml:"replies"`
	} `toml:"server"`
	Log struct {
		Level   string `toml:"level"`
		Console bool   `toml:"console"`
		Dir     string `toml:"dir"`
	} `toml:"log"`
	Directory struct {
		Backend       string `toml:"backend"`
		TTL           string `toml:"ttl"`
		KeyPrefix     string `toml:"key_prefix"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password"`
		RedisDB       int    `toml:"redis_db"`
	} `toml:"directory"`
}

// Write renders c as TOML that Load reads back unchanged.
func Write(w io.Writer, c Config) error {
	var f fileConfig
	f.Server.Name = c.Server.Name
	f.Server.Addr = c.Server.Addr
	f.Server.Delimiter = c.Server.Delimiter
	f.Server.MaxFrameSize = c.Server.MaxFrameSize
	f.Server.ReadTimeout = c.Server.ReadTimeout.String()
	f.Server.Replies = c.Server.Replies
	f.Log.Level = c.Log.Level
	f.Log.Console = c.Log.Console
	f.Log.Dir = c.Log.Dir
	f.Directory.Backend = c.Directory.Backend
	f.Directory.TTL = c.Directory.TTL.String()
	f.Directory.KeyPrefix = c.Directory.KeyPrefix
	f.Directory.RedisAddr = c.Directory.RedisAddr
	f.Directory.RedisPassword = c.Directory.RedisPassword
	f.Directory.RedisDB = c.Directory.RedisDB

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("config encode failed: %w", err)
	}

	_, err = w.Write(data)
	return err
}

// WriteDefault renders the built-in configuration as TOML.
func WriteDefault(w io.Writer) error {
	return Write(w, Default())
}
