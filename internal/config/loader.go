package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// LoadOptions controls where Load looks for a config file and environment
// overrides.
type LoadOptions struct {
	ConfigFile string
	EnvPrefix  string
	Defaults   *EnvironmentConfig
}

// Load builds an EnvironmentConfig from built-in defaults, overridden by a
// config file, in turn overridden by REED_* environment variables. The
// result is meant to be constructed once at process startup and passed by
// reference into the Store — it is never re-read on the hot path.
func Load(opts LoadOptions) (*EnvironmentConfig, error) {
	v := viper.New()

	defaults := opts.Defaults
	if defaults == nil {
		defaults = Default()
	}
	setViperDefaults(v, defaults)

	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "REED"
	}
	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("reed")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/reed")
		v.AddConfigPath("/etc/reed")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &EnvironmentConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration using only the environment/default
// search path (no explicit config file).
func LoadWithDefaults() (*EnvironmentConfig, error) {
	return Load(LoadOptions{})
}

func setViperDefaults(v *viper.Viper, cfg *EnvironmentConfig) {
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("environment", cfg.Environment)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("backup.retain_count", cfg.Backup.RetainCount)
	v.SetDefault("backup.mirror.enabled", cfg.Backup.Mirror.Enabled)
	v.SetDefault("backup.mirror.bucket", cfg.Backup.Mirror.Bucket)
	v.SetDefault("backup.mirror.region", cfg.Backup.Mirror.Region)
	v.SetDefault("backup.mirror.endpoint", cfg.Backup.Mirror.Endpoint)
	v.SetDefault("backup.mirror.prefix", cfg.Backup.Mirror.Prefix)

	v.SetDefault("decision_cache.max_entries", cfg.DecisionCache.MaxEntries)

	v.SetDefault("watch.retention_sweep_cron", cfg.Watch.RetentionSweep)
}
