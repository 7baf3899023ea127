// Package config resolves policyminer settings from defaults, an optional
// config file, POLICYMINER_* environment variables and command-line flags,
// in increasing order of precedence.
//
// The merged result is checked against an embedded CUE schema before it is
// returned, so callers never see out-of-range thresholds or unknown keys.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/policyminer/internal/miner"
	"github.com/roach88/policyminer/internal/policy"
	"github.com/roach88/policyminer/internal/render"
)

// EnvPrefix is prepended to upper-cased keys when reading the environment.
const EnvPrefix = "POLICYMINER"

// Configuration keys.
const (
	KeyMinSupport    = "min_support"
	KeyMinConfidence = "min_confidence"
	KeyMinLift       = "min_lift"
	KeyName          = "name"
	KeyMaxPolicies   = "max_policies"
	KeyLogLevel      = "log_level"
)

// DefaultLogLevel is used when nothing overrides log_level.
const DefaultLogLevel = "info"

// Config is the resolved configuration.
type Config struct {
	Thresholds  miner.Thresholds `json:"thresholds"`
	Name        string           `json:"name"`
	MaxPolicies int              `json:"max_policies"`
	LogLevel    string           `json:"log_level"`
}

// Default returns the configuration used when no file, environment or
// flag overrides anything.
func Default() Config {
	return Config{
		Thresholds:  miner.DefaultThresholds(),
		Name:        policy.DefaultName,
		MaxPolicies: render.DefaultMaxRules,
		LogLevel:    DefaultLogLevel,
	}
}

// SlogLevel maps LogLevel to a slog level. Unknown names map to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// flagNames maps configuration keys to the command-line flags that may set
// them. Flags missing from the FlagSet passed to Load are skipped.
var flagNames = map[string]string{
	KeyMinSupport:    "min-support",
	KeyMinConfidence: "min-confidence",
	KeyMinLift:       "min-lift",
	KeyName:          "name",
	KeyMaxPolicies:   "max-policies",
	KeyLogLevel:      "log-level",
}

// Load resolves the configuration. path names an optional yaml, json or
// toml file; an empty path skips the file layer. flags may be nil. Only
// flags the user actually set override lower layers.
//
// Returns a *ValidationError when the merged values violate the schema.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault(KeyMinSupport, def.Thresholds.MinSupport)
	v.SetDefault(KeyMinConfidence, def.Thresholds.MinConfidence)
	v.SetDefault(KeyMinLift, def.Thresholds.MinLift)
	v.SetDefault(KeyName, def.Name)
	v.SetDefault(KeyMaxPolicies, def.MaxPolicies)
	v.SetDefault(KeyLogLevel, def.LogLevel)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagNames {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	settings, err := resolve(v)
	if err != nil {
		return Config{}, err
	}
	if err := validate(settings); err != nil {
		return Config{}, err
	}

	return Config{
		Thresholds: miner.Thresholds{
			MinSupport:    settings[KeyMinSupport].(float64),
			MinConfidence: settings[KeyMinConfidence].(float64),
			MinLift:       settings[KeyMinLift].(float64),
		},
		Name:        settings[KeyName].(string),
		MaxPolicies: settings[KeyMaxPolicies].(int),
		LogLevel:    settings[KeyLogLevel].(string),
	}, nil
}

// resolve reads every key viper knows about into a plain map. Known keys
// are converted to their Go types; values from the environment arrive as
// strings and would otherwise fail the schema. Unknown keys are passed
// through unchanged so the closed schema can reject them.
func resolve(v *viper.Viper) (map[string]any, error) {
	settings := make(map[string]any)
	for _, key := range v.AllKeys() {
		raw := v.Get(key)
		var (
			val any
			err error
		)
		switch key {
		case KeyMinSupport, KeyMinConfidence, KeyMinLift:
			val, err = cast.ToFloat64E(raw)
		case KeyMaxPolicies:
			val, err = cast.ToIntE(raw)
		case KeyName:
			var s string
			s, err = cast.ToStringE(raw)
			val = strings.TrimSpace(s)
		case KeyLogLevel:
			var s string
			s, err = cast.ToStringE(raw)
			val = strings.ToLower(strings.TrimSpace(s))
		default:
			val = raw
		}
		if err != nil {
			return nil, &ValidationError{Field: key, Message: err.Error()}
		}
		settings[key] = val
	}
	return settings, nil
}

// ValidationError reports a configuration value the schema rejects.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Message
	}
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
