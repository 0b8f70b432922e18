package claims

import (
	"fmt"
	"time"
)

// Policy-tunable defaults. These are starting values, not hard-coded rules;
// deployments override them through configuration.
const (
	DefaultGuestResponseSLA       = 48 * time.Hour
	DefaultReminderWindow         = 24 * time.Hour
	DefaultDeductibleCents        = AmountCents(50000)
	DefaultResponseRateLimit      = 5
	DefaultResponseRateLimitTTL   = time.Hour
	defaultNotificationRetryCount = 1
)

// Config carries the engine's tunable policy values.
type Config struct {
	// GuestResponseSLA is how long a guest has to respond to a new claim.
	GuestResponseSLA time.Duration
	// ReminderWindow is how close to the deadline the reminder pass fires.
	ReminderWindow time.Duration
	// DefaultDeductibleCents applies when a claim has no policy attached.
	DefaultDeductibleCents AmountCents
}

// Validate applies defaults and rejects unusable values.
func (cfg *Config) Validate() error {
	if cfg.GuestResponseSLA == 0 {
		cfg.GuestResponseSLA = DefaultGuestResponseSLA
	}
	if cfg.ReminderWindow == 0 {
		cfg.ReminderWindow = DefaultReminderWindow
	}
	if cfg.DefaultDeductibleCents == 0 {
		cfg.DefaultDeductibleCents = DefaultDeductibleCents
	}
	if cfg.GuestResponseSLA < 0 {
		return fmt.Errorf("%w: guest response SLA must be positive", ErrInvalidConfig)
	}
	if cfg.ReminderWindow < 0 {
		return fmt.Errorf("%w: reminder window must be positive", ErrInvalidConfig)
	}
	if cfg.ReminderWindow >= cfg.GuestResponseSLA {
		return fmt.Errorf("%w: reminder window must be shorter than the response SLA", ErrInvalidConfig)
	}
	if cfg.DefaultDeductibleCents < 0 {
		return fmt.Errorf("%w: default deductible must not be negative", ErrInvalidConfig)
	}
	return nil
}
