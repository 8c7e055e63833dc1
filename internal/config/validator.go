package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the config for:
//   - Required fields and positive sizes
//   - A loadable time zone and parseable commute clock times
//   - A distribution (when set) over known categories summing to 100
//   - Budget ratios within (0, 1] and MinCount ≤ MaxCount
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if cfg.Engine.Workers < 1 {
		errs = append(errs, "engine.workers must be at least 1")
	}
	if cfg.Engine.QueueDepth < 1 {
		errs = append(errs, "engine.queue_depth must be at least 1")
	}

	g := cfg.Generator
	if _, err := time.LoadLocation(g.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("generator.timezone %q: %v", g.Timezone, err))
	}
	if g.MaxAttempts < 1 {
		errs = append(errs, "generator.max_attempts must be at least 1")
	}
	if len(g.Distribution) > 0 {
		if err := g.Distribution.Validate(); err != nil {
			errs = append(errs, "generator."+err.Error())
		}
	}

	c := g.Commute
	if c.MaxEmployees < 0 {
		errs = append(errs, "generator.commute.max_employees must not be negative")
	}
	if c.Participation < 0 || c.Participation > 1 {
		errs = append(errs, fmt.Sprintf("generator.commute.participation %v must be within [0, 1]", c.Participation))
	}
	if _, err := parseClock(c.Arrival); err != nil {
		errs = append(errs, fmt.Sprintf("generator.commute.arrival: %v", err))
	}
	if _, err := parseClock(c.Departure); err != nil {
		errs = append(errs, fmt.Sprintf("generator.commute.departure: %v", err))
	}
	if c.ArrivalJitterMinutes < 0 || c.DepartureJitterMinutes < 0 {
		errs = append(errs, "generator.commute jitter must not be negative")
	}
	if g.Fault.IntervalDays < 1 {
		errs = append(errs, "generator.fault.interval_days must be at least 1")
	}

	b := cfg.Budget
	if b.CapacityBytes <= 0 {
		errs = append(errs, "budget.capacity_bytes must be positive")
	}
	if b.MaxUsageRatio <= 0 || b.MaxUsageRatio > 1 {
		errs = append(errs, fmt.Sprintf("budget.max_usage_ratio %v must be within (0, 1]", b.MaxUsageRatio))
	}
	if b.MinCount < 0 || b.MinCount > b.MaxCount {
		errs = append(errs, fmt.Sprintf("budget.min_count %d must be within [0, max_count %d]", b.MinCount, b.MaxCount))
	}

	if cfg.Storage.TTLSeconds < 0 {
		errs = append(errs, "storage.ttl_seconds must not be negative")
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		errs = append(errs, "kafka.topic is required when brokers are set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// parseClock turns "HH:MM" into an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
