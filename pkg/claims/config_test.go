package claims

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidateAppliesDefaults(test *testing.T) {
	test.Parallel()
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("validate: %v", err)
	}
	if cfg.GuestResponseSLA != DefaultGuestResponseSLA {
		test.Fatalf("expected default SLA, got %v", cfg.GuestResponseSLA)
	}
	if cfg.ReminderWindow != DefaultReminderWindow {
		test.Fatalf("expected default reminder window, got %v", cfg.ReminderWindow)
	}
	if cfg.DefaultDeductibleCents != DefaultDeductibleCents {
		test.Fatalf("expected default deductible, got %d", cfg.DefaultDeductibleCents.Int64())
	}
}

func TestConfigValidateRejectsWindowBeyondSLA(test *testing.T) {
	test.Parallel()
	cfg := Config{GuestResponseSLA: 12 * time.Hour, ReminderWindow: 12 * time.Hour}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		test.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestConfigValidateRejectsNegativeDurations(test *testing.T) {
	test.Parallel()
	cfg := Config{GuestResponseSLA: -time.Hour}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		test.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
