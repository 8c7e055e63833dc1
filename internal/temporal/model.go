// Package temporal draws event timestamps skewed toward weekday business hours.
package temporal

import (
	"math/rand/v2"
	"time"
)

const (
	weekendFactor  = 0.2
	weekdayFactor  = 1.0
	businessFactor = 2.5
	offHoursFactor = 0.4

	businessStartHour = 7
	businessEndHour   = 19 // inclusive

	// DefaultMaxAttempts bounds the rejection loop.
	DefaultMaxAttempts = 100
)

// Model samples timestamps by acceptance-rejection over a uniform draw.
//
// The acceptance weight is the product of a weekend factor and an hour
// factor. It is not normalized: weekday business hours weigh 2.5, so those
// draws are always accepted while every other bucket is thinned.
type Model struct {
	rng         *rand.Rand
	loc         *time.Location
	maxAttempts int
	fallbacks   int
}

// Option configures a Model.
type Option func(*Model)

// WithLocation sets the zone whose wall clock decides weekday and hour.
func WithLocation(loc *time.Location) Option {
	return func(m *Model) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithMaxAttempts caps the number of rejected draws before falling back.
func WithMaxAttempts(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// New returns a Model drawing from rng, in UTC with DefaultMaxAttempts
// unless overridden.
func New(rng *rand.Rand, opts ...Option) *Model {
	m := &Model{rng: rng, loc: time.UTC, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Sample returns an instant in [start, end]. When every attempt is
// rejected the last uniform draw is returned as is.
func (m *Model) Sample(start, end time.Time) time.Time {
	var ts time.Time
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		ts = m.uniform(start, end)
		if m.rng.Float64() <= m.Weight(ts) {
			return ts
		}
	}
	m.fallbacks++
	return ts
}

// Weight is the unnormalized acceptance weight for ts.
func (m *Model) Weight(ts time.Time) float64 {
	local := ts.In(m.loc)
	day := weekdayFactor
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		day = weekendFactor
	}
	hour := offHoursFactor
	if h := local.Hour(); h >= businessStartHour && h <= businessEndHour {
		hour = businessFactor
	}
	return day * hour
}

// Fallbacks counts samples that exhausted the attempt cap.
func (m *Model) Fallbacks() int { return m.fallbacks }

// uniform draws at millisecond granularity, both ends inclusive.
func (m *Model) uniform(start, end time.Time) time.Time {
	span := end.Sub(start).Milliseconds()
	if span <= 0 {
		return start
	}
	return start.Add(time.Duration(m.rng.Int64N(span+1)) * time.Millisecond)
}
