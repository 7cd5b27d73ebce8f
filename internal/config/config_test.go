package config

import (
	"errors"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DataDir != DefaultDataDir {
		t.Errorf("expected data dir %s, got %s", DefaultDataDir, cfg.DataDir)
	}
	if cfg.Backup.RetainCount != DefaultRetainCount {
		t.Errorf("expected retain count %d, got %d", DefaultRetainCount, cfg.Backup.RetainCount)
	}
	if cfg.DecisionCache.MaxEntries != DefaultDecisionMax {
		t.Errorf("expected decision cache max %d, got %d", DefaultDecisionMax, cfg.DecisionCache.MaxEntries)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "verbose"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid log level")
	}

	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(errs) != 1 || errs[0].Field != "log.level" {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidate_MirrorRequiresBucket(t *testing.T) {
	cfg := Default()
	cfg.Backup.Mirror.Enabled = true

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error when mirror enabled without bucket")
	}
}

func TestValidate_RetainCountMustBePositive(t *testing.T) {
	cfg := Default()
	cfg.Backup.RetainCount = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for retain_count=0")
	}
}
