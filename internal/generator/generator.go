// Package generator assembles a complete synthetic event dataset: pattern
// events first, then weighted random events up to the target count, sorted
// and renumbered.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/budget"
	"github.com/gyaneshwarpardhi/pacsim/internal/catalog"
	"github.com/gyaneshwarpardhi/pacsim/internal/event"
	"github.com/gyaneshwarpardhi/pacsim/internal/metrics"
	"github.com/gyaneshwarpardhi/pacsim/internal/pattern"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
	"github.com/gyaneshwarpardhi/pacsim/internal/synth"
	"github.com/gyaneshwarpardhi/pacsim/internal/temporal"
)

// ErrInvalidRequest is wrapped for malformed requests.
var ErrInvalidRequest = errors.New("invalid generation request")

// cancelCheckEvery is how many fill iterations run between context checks.
const cancelCheckEvery = 1024

// Config tunes the generator. Zero fields fall back to defaults in New.
type Config struct {
	Location     *time.Location
	MaxAttempts  int
	Catalog      []catalog.Definition
	Distribution catalog.Distribution // applied when a request has none
	Commute      pattern.CommuteConfig
	Fault        pattern.FaultConfig
}

// DefaultConfig is UTC with the built-in catalog and patterns.
func DefaultConfig() Config {
	return Config{
		Location:    time.UTC,
		MaxAttempts: temporal.DefaultMaxAttempts,
		Catalog:     catalog.Default(),
		Commute:     pattern.DefaultCommute(),
		Fault:       pattern.DefaultFault(),
	}
}

// Request describes one dataset. Dates are calendar days, both inclusive.
type Request struct {
	StartDate    time.Time
	EndDate      time.Time
	TargetCount  int
	Cardholders  []reference.Cardholder
	Doors        []reference.Door
	Controllers  []reference.Controller
	Distribution catalog.Distribution
}

// Result is a finished dataset.
type Result struct {
	Events      []event.Event
	WindowStart time.Time
	WindowEnd   time.Time
	Counts      map[event.Category]int
	Injected    map[string]int
	Fallbacks   int
}

// Generator produces datasets. It holds no per-call state and is safe for
// concurrent use.
type Generator struct {
	cfg       Config
	validator *budget.Validator
	logger    *slog.Logger
	newRand   func() *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithRand sets the per-call random source factory.
func WithRand(fn func() *rand.Rand) Option {
	return func(g *Generator) { g.newRand = fn }
}

// New returns a Generator checking requests with validator.
func New(cfg Config, validator *budget.Validator, opts ...Option) *Generator {
	def := DefaultConfig()
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if len(cfg.Catalog) == 0 {
		cfg.Catalog = def.Catalog
	}
	if validator == nil {
		validator = budget.NewValidator(budget.DefaultLimits(), nil)
	}
	g := &Generator{
		cfg:       cfg,
		validator: validator,
		logger:    slog.Default(),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the effective configuration.
func (g *Generator) Config() Config { return g.cfg }

// Validator returns the storage budget validator.
func (g *Generator) Validator() *budget.Validator { return g.validator }

// Window is the inclusive instant range covered by the request's dates.
func (g *Generator) Window(req Request) (time.Time, time.Time) {
	loc := g.cfg.Location
	s := req.StartDate.In(loc)
	e := req.EndDate.In(loc)
	start := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	end := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// Generate builds the dataset for req. It performs no I/O apart from the
// budget probe.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	res, err := g.generate(ctx, req)
	outcome := "success"
	switch {
	case errors.Is(err, budget.ErrQuotaExceeded):
		outcome = "quota_exceeded"
	case errors.Is(err, reference.ErrEmptyPool):
		outcome = "empty_pool"
	case errors.Is(err, ErrInvalidRequest):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	metrics.Generations.WithLabelValues(outcome).Inc()
	metrics.GenerationDuration.Observe(float64(time.Since(started).Milliseconds()))
	return res, err
}

func (g *Generator) generate(ctx context.Context, req Request) (*Result, error) {
	defs, err := g.definitions(req)
	if err != nil {
		return nil, err
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrInvalidRequest)
	}
	start, end := g.Window(req)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s",
			ErrInvalidRequest, start.Format(time.DateOnly), req.EndDate.In(g.cfg.Location).Format(time.DateOnly))
	}

	check, err := g.validator.Validate(ctx, req.TargetCount)
	if err != nil {
		return nil, err
	}
	if err := check.Err(); err != nil {
		metrics.QuotaRejections.Inc()
		return nil, err
	}

	rng := g.newRand()
	days := pattern.Days(start, end, g.cfg.Location)

	commute, err := pattern.Commute(rng, g.cfg.Commute, req.Cardholders, req.Doors, days)
	if err != nil {
		return nil, err
	}
	faults := pattern.Faults(rng, g.cfg.Fault, req.Doors, days)
	if len(faults) == 0 {
		g.logger.Debug("fault pattern skipped: no matching door", "match", g.cfg.Fault.DoorMatch)
	}

	injected := len(commute) + len(faults)
	events := make([]event.Event, 0, max(req.TargetCount, injected))
	events = append(events, commute...)
	events = append(events, faults...)
	for i := range events {
		events[i].Timestamp = clamp(events[i].Timestamp, start, end)
	}

	sampler, err := catalog.NewSampler(defs, rng)
	if err != nil {
		return nil, err
	}
	model := temporal.New(rng, temporal.WithLocation(g.cfg.Location), temporal.WithMaxAttempts(g.cfg.MaxAttempts))
	syn := synth.New(rng, req.Cardholders, req.Doors, req.Controllers)

	remaining := max(req.TargetCount-injected, 0)
	for i := 0; i < remaining; i++ {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ts := model.Sample(start, end)
		ev, err := syn.Build(i+1, ts, sampler.Sample())
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(a, b int) bool {
		return events[a].Timestamp.Before(events[b].Timestamp)
	})

	counts := make(map[event.Category]int, len(event.Categories))
	for i := range events {
		events[i].ID = event.FormatID(i + 1)
		counts[events[i].Category()]++
	}

	for cat, n := range counts {
		metrics.EventsGenerated.WithLabelValues(string(cat)).Add(float64(n))
	}
	metrics.PatternEvents.WithLabelValues(pattern.KindCommute).Add(float64(len(commute)))
	metrics.PatternEvents.WithLabelValues(pattern.KindFault).Add(float64(len(faults)))
	if fb := model.Fallbacks(); fb > 0 {
		metrics.TemporalFallbacks.Add(float64(fb))
	}

	g.logger.Info("dataset generated",
		"events", len(events),
		"target", req.TargetCount,
		"commute", len(commute),
		"faults", len(faults),
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
	)

	return &Result{
		Events:      events,
		WindowStart: start,
		WindowEnd:   end,
		Counts:      counts,
		Injected:    map[string]int{pattern.KindCommute: len(commute), pattern.KindFault: len(faults)},
		Fallbacks:   model.Fallbacks(),
	}, nil
}

// definitions applies the request's distribution, or the configured one.
func (g *Generator) definitions(req Request) ([]catalog.Definition, error) {
	dist := req.Distribution
	if len(dist) == 0 {
		dist = g.cfg.Distribution
	}
	if len(dist) == 0 {
		return g.cfg.Catalog, nil
	}
	if err := dist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	defs, err := catalog.Reweight(g.cfg.Catalog, dist)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return defs, nil
}

func clamp(ts, start, end time.Time) time.Time {
	if ts.Before(start) {
		return start.UTC()
	}
	if ts.After(end) {
		return end.UTC()
	}
	return ts
}
