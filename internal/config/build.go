package config

import (
	"fmt"
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/budget"
	"github.com/gyaneshwarpardhi/pacsim/internal/catalog"
	"github.com/gyaneshwarpardhi/pacsim/internal/generator"
	"github.com/gyaneshwarpardhi/pacsim/internal/pattern"
)

// GeneratorConfig converts the validated generator section.
func (c *Config) GeneratorConfig() (generator.Config, error) {
	g := c.Generator
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return generator.Config{}, fmt.Errorf("timezone %q: %w", g.Timezone, err)
	}
	arrival, err := parseClock(g.Commute.Arrival)
	if err != nil {
		return generator.Config{}, err
	}
	departure, err := parseClock(g.Commute.Departure)
	if err != nil {
		return generator.Config{}, err
	}
	return generator.Config{
		Location:     loc,
		MaxAttempts:  g.MaxAttempts,
		Catalog:      catalog.Default(),
		Distribution: g.Distribution,
		Commute: pattern.CommuteConfig{
			EntranceDoor:    g.Commute.EntranceDoor,
			Departments:     g.Commute.Departments,
			MaxEmployees:    g.Commute.MaxEmployees,
			Participation:   g.Commute.Participation,
			Arrival:         arrival,
			ArrivalJitter:   time.Duration(g.Commute.ArrivalJitterMinutes) * time.Minute,
			Departure:       departure,
			DepartureJitter: time.Duration(g.Commute.DepartureJitterMinutes) * time.Minute,
		},
		Fault: pattern.FaultConfig{
			DoorMatch:    g.Fault.DoorMatch,
			IntervalDays: g.Fault.IntervalDays,
		},
	}, nil
}

// BudgetLimits converts the budget section.
func (c *Config) BudgetLimits() budget.Limits {
	return budget.Limits{
		CapacityBytes: c.Budget.CapacityBytes,
		MaxUsageRatio: c.Budget.MaxUsageRatio,
		MaxCount:      c.Budget.MaxCount,
		MinCount:      c.Budget.MinCount,
	}
}

// StorageTTL is the dataset expiry; zero means none.
func (c *Config) StorageTTL() time.Duration {
	return time.Duration(c.Storage.TTLSeconds) * time.Second
}
