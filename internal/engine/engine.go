package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/pacsim/internal/budget"
	"github.com/gyaneshwarpardhi/pacsim/internal/catalog"
	"github.com/gyaneshwarpardhi/pacsim/internal/config"
	"github.com/gyaneshwarpardhi/pacsim/internal/event"
	"github.com/gyaneshwarpardhi/pacsim/internal/generator"
	"github.com/gyaneshwarpardhi/pacsim/internal/metrics"
	"github.com/gyaneshwarpardhi/pacsim/internal/publish"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
	"github.com/gyaneshwarpardhi/pacsim/internal/store"
)

var (
	// ErrQueueFull is returned when an async job cannot be enqueued.
	ErrQueueFull = errors.New("generation queue full")
	// ErrPublishDisabled is returned by Publish when Kafka is not configured.
	ErrPublishDisabled = errors.New("kafka publishing not configured")
)

// Params is a generation request as received from callers.
type Params struct {
	StartDate    string               `json:"start_date"`
	EndDate      string               `json:"end_date"`
	TargetCount  int                  `json:"target_count"`
	Distribution catalog.Distribution `json:"distribution,omitempty"`
}

// Summary describes a stored dataset without its events.
type Summary struct {
	DatasetID   string                 `json:"dataset_id"`
	CreatedAt   time.Time              `json:"created_at"`
	StartDate   string                 `json:"start_date"`
	EndDate     string                 `json:"end_date"`
	TargetCount int                    `json:"target_count"`
	EventCount  int                    `json:"event_count"`
	Counts      map[event.Category]int `json:"counts"`
	Injected    map[string]int         `json:"injected"`
	Fallbacks   int                    `json:"temporal_fallbacks"`
	StoredBytes int64                  `json:"stored_bytes"`
	DurationMs  int64                  `json:"duration_ms"`
}

// BudgetStatus reports storage headroom.
type BudgetStatus struct {
	UsedBytes      int64         `json:"used_bytes"`
	EventSizeBytes int64         `json:"event_size_bytes"`
	RecommendedMax int           `json:"recommended_max_count"`
	Limits         budget.Limits `json:"limits"`
}

// Engine runs generations against the current generator and persists the
// result, replacing any previous dataset.
type Engine struct {
	gen       atomic.Pointer[generator.Generator]
	ref       atomic.Pointer[reference.Data]
	store     store.Store
	publisher *publish.Publisher
	pool      *workerPool[*jobWork]
	jobs      *jobTable
	conf      config.EngineConf
	logger    *slog.Logger
}

type jobWork struct {
	id     string
	params Params
}

// New creates an Engine and starts its job pool. publisher may be nil.
func New(ctx context.Context, gen *generator.Generator, ref *reference.Data, st store.Store, pub *publish.Publisher, conf config.EngineConf) *Engine {
	e := &Engine{
		store:     st,
		publisher: pub,
		jobs:      newJobTable(conf.JobHistory),
		conf:      conf,
		logger:    slog.Default(),
	}
	e.gen.Store(gen)
	e.ref.Store(ref)
	e.pool = newWorkerPool[*jobWork](ctx, conf.Workers, conf.QueueDepth, e.runJob)
	return e
}

// SwapGenerator atomically replaces the generator (used on hot-reload).
func (e *Engine) SwapGenerator(g *generator.Generator) {
	e.gen.Store(g)
}

// SwapReference atomically replaces the reference data.
func (e *Engine) SwapReference(d *reference.Data) {
	e.ref.Store(d)
}

// Reference returns the current reference data.
func (e *Engine) Reference() *reference.Data {
	return e.ref.Load()
}

// Location is the zone the current generator works in.
func (e *Engine) Location() *time.Location {
	return e.gen.Load().Config().Location
}

// Generate runs one generation synchronously and stores the result.
func (e *Engine) Generate(ctx context.Context, p Params) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	started := time.Now()
	gen := e.gen.Load()
	req, err := e.request(gen, p)
	if err != nil {
		return nil, err
	}
	res, err := gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	ds := &store.Dataset{
		ID:          uuid.New().String(),
		CreatedAt:   time.Now().UTC(),
		StartDate:   res.WindowStart.Format(time.DateOnly),
		EndDate:     res.WindowEnd.Format(time.DateOnly),
		TargetCount: p.TargetCount,
		Counts:      res.Counts,
		Injected:    res.Injected,
		Events:      res.Events,
	}
	if err := e.store.Save(ctx, ds); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	used, err := e.store.UsedBytes(ctx)
	if err != nil {
		e.logger.Warn("stored size unavailable", "err", err)
	}
	metrics.StoredBytes.Set(float64(used))

	return &Summary{
		DatasetID:   ds.ID,
		CreatedAt:   ds.CreatedAt,
		StartDate:   ds.StartDate,
		EndDate:     ds.EndDate,
		TargetCount: ds.TargetCount,
		EventCount:  len(ds.Events),
		Counts:      ds.Counts,
		Injected:    ds.Injected,
		Fallbacks:   res.Fallbacks,
		StoredBytes: used,
		DurationMs:  time.Since(started).Milliseconds(),
	}, nil
}

// Submit enqueues an async generation. Params are checked up front so
// malformed requests fail immediately.
func (e *Engine) Submit(p Params) (Job, error) {
	if _, err := e.request(e.gen.Load(), p); err != nil {
		return Job{}, err
	}
	j := &Job{
		ID:          uuid.New().String(),
		Status:      JobQueued,
		Params:      p,
		SubmittedAt: time.Now().UTC(),
	}
	e.jobs.add(j)
	if !e.pool.Submit(&jobWork{id: j.ID, params: p}) {
		e.jobs.remove(j.ID)
		metrics.JobsDropped.Inc()
		return Job{}, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	metrics.JobsEnqueued.Inc()
	snap, _ := e.jobs.get(j.ID)
	return snap, nil
}

// Job returns the job with id.
func (e *Engine) Job(id string) (Job, bool) {
	return e.jobs.get(id)
}

func (e *Engine) runJob(ctx context.Context, w *jobWork) {
	e.jobs.update(w.id, func(j *Job) { j.Status = JobRunning })
	sum, err := e.Generate(ctx, w.params)
	now := time.Now().UTC()
	e.jobs.update(w.id, func(j *Job) {
		j.FinishedAt = &now
		if err != nil {
			j.Status = JobFailed
			j.Error = err.Error()
			return
		}
		j.Status = JobSucceeded
		j.Summary = sum
	})
	if err != nil {
		e.logger.Warn("generation job failed", "job_id", w.id, "err", err)
	}
}

// Current returns the stored dataset.
func (e *Engine) Current(ctx context.Context) (*store.Dataset, error) {
	return e.store.Load(ctx)
}

// Clear removes the stored dataset.
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.store.Clear(ctx); err != nil {
		return err
	}
	metrics.StoredBytes.Set(0)
	return nil
}

// Publish sends the stored dataset to Kafka.
func (e *Engine) Publish(ctx context.Context) (string, int, error) {
	if e.publisher == nil {
		return "", 0, ErrPublishDisabled
	}
	ds, err := e.store.Load(ctx)
	if err != nil {
		return "", 0, err
	}
	n, err := e.publisher.Publish(ctx, ds.ID, ds.Events)
	return ds.ID, n, err
}

// Budget reports current usage and the recommended maximum count.
func (e *Engine) Budget(ctx context.Context) (BudgetStatus, error) {
	v := e.gen.Load().Validator()
	rec, err := v.RecommendedMax(ctx)
	if err != nil {
		return BudgetStatus{}, err
	}
	used, err := e.store.UsedBytes(ctx)
	if err != nil {
		return BudgetStatus{}, err
	}
	return BudgetStatus{
		UsedBytes:      used,
		EventSizeBytes: v.EventSize(),
		RecommendedMax: rec,
		Limits:         v.Limits(),
	}, nil
}

// CheckBudget runs the validator for n events without generating.
func (e *Engine) CheckBudget(ctx context.Context, n int) (budget.Result, error) {
	return e.gen.Load().Validator().Validate(ctx, n)
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Health pings the backing store when it supports it.
func (e *Engine) Health(ctx context.Context) error {
	if h, ok := e.store.(interface{ Health(context.Context) error }); ok {
		return h.Health(ctx)
	}
	return nil
}

// Shutdown drains the job pool gracefully.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}

func (e *Engine) timeout() time.Duration {
	if e.conf.TimeoutMs <= 0 {
		return time.Minute
	}
	return time.Duration(e.conf.TimeoutMs) * time.Millisecond
}

func (e *Engine) request(gen *generator.Generator, p Params) (generator.Request, error) {
	loc := gen.Config().Location
	start, err := time.ParseInLocation(time.DateOnly, p.StartDate, loc)
	if err != nil {
		return generator.Request{}, fmt.Errorf("%w: start_date %q must be YYYY-MM-DD", generator.ErrInvalidRequest, p.StartDate)
	}
	end, err := time.ParseInLocation(time.DateOnly, p.EndDate, loc)
	if err != nil {
		return generator.Request{}, fmt.Errorf("%w: end_date %q must be YYYY-MM-DD", generator.ErrInvalidRequest, p.EndDate)
	}
	if end.Before(start) {
		return generator.Request{}, fmt.Errorf("%w: start_date %s is after end_date %s", generator.ErrInvalidRequest, p.StartDate, p.EndDate)
	}
	if p.TargetCount < 0 {
		return generator.Request{}, fmt.Errorf("%w: target_count must not be negative", generator.ErrInvalidRequest)
	}
	if len(p.Distribution) > 0 {
		if err := p.Distribution.Validate(); err != nil {
			return generator.Request{}, fmt.Errorf("%w: %v", generator.ErrInvalidRequest, err)
		}
	}
	ref := e.ref.Load()
	return generator.Request{
		StartDate:    start,
		EndDate:      end,
		TargetCount:  p.TargetCount,
		Cardholders:  ref.Cardholders,
		Doors:        ref.Doors,
		Controllers:  ref.Controllers,
		Distribution: p.Distribution,
	}, nil
}
