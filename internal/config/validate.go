package config

import (
	"fmt"
	"strings"

	"github.com/reedcms/reed/internal/scheduler"
)

// ValidationError reports a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates one or more ValidationError values.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Validate checks cfg for internally inconsistent or out-of-range values.
func Validate(cfg *EnvironmentConfig) error {
	var errs ValidationErrors

	if cfg.DataDir == "" {
		errs = append(errs, ValidationError{"data_dir", "must not be empty"})
	}

	switch cfg.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{"log.level", "must be one of trace, debug, info, warn, error"})
	}

	switch cfg.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{"log.format", "must be console or json"})
	}

	if cfg.Backup.RetainCount < 1 {
		errs = append(errs, ValidationError{"backup.retain_count", "must be at least 1"})
	}

	if cfg.Backup.Mirror.Enabled {
		if cfg.Backup.Mirror.Bucket == "" {
			errs = append(errs, ValidationError{"backup.mirror.bucket", "required when mirror is enabled"})
		}
		if cfg.Backup.Mirror.Region == "" && cfg.Backup.Mirror.Endpoint == "" {
			errs = append(errs, ValidationError{"backup.mirror.region", "required when mirror is enabled and no endpoint is set"})
		}
	}

	if cfg.DecisionCache.MaxEntries < 1 {
		errs = append(errs, ValidationError{"decision_cache.max_entries", "must be at least 1"})
	}

	if _, err := scheduler.NewCronParser().Parse(cfg.Watch.RetentionSweep); err != nil {
		errs = append(errs, ValidationError{"watch.retention_sweep_cron", err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
