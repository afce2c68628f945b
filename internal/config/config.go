// Package config loads service settings from flags, environment variables
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. GEORESOLVE_MMDB.
const EnvPrefix = "GEORESOLVE"

// Keys shared by flags, environment variables and config files.
const (
	KeyMMDB         = "mmdb"
	KeyBind         = "bind"
	KeyGRPCBind     = "grpc_bind"
	KeyLogLevel     = "log_level"
	KeyStrictErrors = "strict_errors"
	KeyWatch        = "watch"
)

// DefaultBind is the HTTP listen address used when none is configured.
const DefaultBind = "127.0.0.1:3000"

// Config holds the runtime settings, read once at startup.
type Config struct {
	MMDBPath     string `mapstructure:"mmdb"`
	Bind         string `mapstructure:"bind"`
	GRPCBind     string `mapstructure:"grpc_bind"`
	LogLevel     string `mapstructure:"log_level"`
	StrictErrors bool   `mapstructure:"strict_errors"`
	Watch        bool   `mapstructure:"watch"`
}

// RegisterFlags adds the command-line flags for every setting.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("mmdb", "", "path to the MaxMind DB file")
	fs.String("bind", DefaultBind, "HTTP listen address")
	fs.String("grpc-bind", "", "gRPC listen address (disabled when empty)")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.Bool("strict-errors", false, "answer malformed addresses with 400 instead of 500")
	fs.Bool("watch", false, "reload the database when the file changes")
}

// New returns a viper instance with defaults, environment binding and the
// given flags bound to their keys.
func New(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault(KeyBind, DefaultBind)
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if fs != nil {
		for key, flag := range map[string]string{
			KeyMMDB:         "mmdb",
			KeyBind:         "bind",
			KeyGRPCBind:     "grpc-bind",
			KeyLogLevel:     "log-level",
			KeyStrictErrors: "strict-errors",
			KeyWatch:        "watch",
		} {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
	}

	return v, nil
}

// Load reads the optional config file and decodes the settings.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal only sees keys viper knows about; make the env-only ones known.
	for _, key := range []string{KeyMMDB, KeyGRPCBind, KeyStrictErrors, KeyWatch} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error

	if c.MMDBPath == "" {
		errs = append(errs, errors.New("mmdb path is required"))
	}
	if c.Bind == "" {
		errs = append(errs, errors.New("bind address is required"))
	}
	if _, ok := logLevels[c.LogLevel]; !ok {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}

	return errors.Join(errs...)
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel converts the configured log level to slog.Level.
func (c Config) SlogLevel() slog.Level {
	if level, ok := logLevels[c.LogLevel]; ok {
		return level
	}
	return slog.LevelInfo
}
