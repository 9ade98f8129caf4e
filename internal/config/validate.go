package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Tracking.validate(); err != nil {
		return fmt.Errorf("tracking: %w", err)
	}

	if c.Outbox.PollInterval <= 0 {
		return fmt.Errorf("outbox.poll_interval must be > 0 (got %v)", c.Outbox.PollInterval)
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox.batch_size must be > 0 (got %d)", c.Outbox.BatchSize)
	}

	return nil
}

func (t *TrackingConfig) validate() error {
	if t.MaxActiveItems <= 0 {
		return fmt.Errorf("max_active_items must be > 0 (got %d)", t.MaxActiveItems)
	}
	if t.InactivityThreshold <= 0 {
		return fmt.Errorf("inactivity_threshold must be > 0 (got %v)", t.InactivityThreshold)
	}
	if t.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval must be >= 0 (got %v)", t.SweepInterval)
	}
	if t.ReworkFallbackRatio < 0 || t.ReworkFallbackRatio > 1 {
		return fmt.Errorf("rework_fallback_ratio must be within [0, 1] (got %v)", t.ReworkFallbackRatio)
	}
	return nil
}
