package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/pacsim/internal/budget"
	"github.com/gyaneshwarpardhi/pacsim/internal/config"
	"github.com/gyaneshwarpardhi/pacsim/internal/engine"
	"github.com/gyaneshwarpardhi/pacsim/internal/event"
	"github.com/gyaneshwarpardhi/pacsim/internal/filter"
	"github.com/gyaneshwarpardhi/pacsim/internal/generator"
	"github.com/gyaneshwarpardhi/pacsim/internal/metrics"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
	"github.com/gyaneshwarpardhi/pacsim/internal/store"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/datasets", h.generate)
	h.mux.HandleFunc("POST /v1/datasets/jobs", h.submitJob)
	h.mux.HandleFunc("GET /v1/datasets/jobs/{id}", h.getJob)
	h.mux.HandleFunc("GET /v1/datasets/current", h.currentDataset)
	h.mux.HandleFunc("DELETE /v1/datasets/current", h.clearDataset)
	h.mux.HandleFunc("POST /v1/datasets/current/publish", h.publishDataset)
	h.mux.HandleFunc("GET /v1/budget", h.budgetStatus)
	h.mux.HandleFunc("GET /v1/budget/check", h.budgetCheck)
	h.mux.HandleFunc("GET /v1/reference", h.reference)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/datasets: synchronous generation; replaces the stored dataset.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var p engine.Params
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	sum, err := h.eng.Generate(r.Context(), p)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

// POST /v1/datasets/jobs: async generation.
func (h *Handler) submitJob(w http.ResponseWriter, r *http.Request) {
	var p engine.Params
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	job, err := h.eng.Submit(p)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// GET /v1/datasets/jobs/{id}
func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.eng.Job(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GET /v1/datasets/current?offset=&limit=&category=&filter=: paginated events.
func (h *Handler) currentDataset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := intParam(q.Get("limit"), defaultPageSize)
	if err != nil || limit < 1 || limit > maxPageSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be within [1, %d]", maxPageSize))
		return
	}
	category := event.Category(q.Get("category"))
	if category != "" && !category.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", category))
		return
	}
	var flt *filter.Filter
	if expr := q.Get("filter"); expr != "" {
		if flt, err = filter.Compile(expr, h.eng.Location()); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ds, err := h.eng.Current(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	events := ds.Events
	if category != "" {
		filtered := make([]event.Event, 0, len(events))
		for _, ev := range events {
			if ev.Category() == category {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	if flt != nil {
		events = flt.Apply(events)
	}
	total := len(events)
	start := min(offset, total)
	end := min(start+limit, total)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset_id": ds.ID,
		"created_at": ds.CreatedAt,
		"start_date": ds.StartDate,
		"end_date":   ds.EndDate,
		"counts":     ds.Counts,
		"total":      total,
		"offset":     start,
		"limit":      limit,
		"events":     events[start:end],
	})
}

// DELETE /v1/datasets/current
func (h *Handler) clearDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.Clear(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/datasets/current/publish: send the stored events to Kafka.
func (h *Handler) publishDataset(w http.ResponseWriter, r *http.Request) {
	id, n, err := h.eng.Publish(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset_id": id,
		"published":  n,
	})
}

// GET /v1/budget
func (h *Handler) budgetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.eng.Budget(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GET /v1/budget/check?count=N
func (h *Handler) budgetCheck(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "count must be an integer")
		return
	}
	res, err := h.eng.CheckBudget(r.Context(), n)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /v1/reference
func (h *Handler) reference(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Reference())
}

// POST /v1/config/reload: re-read the config file; OnChange callbacks swap the generator.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := config.Validate(cfg); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"version":  cfg.Version,
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the store is unreachable or the job queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "store_unavailable",
			"error":  err.Error(),
		})
		return
	}
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

// writeEngineError maps domain errors onto status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	var qe *budget.QuotaError
	switch {
	case errors.As(err, &qe):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: err.Error(),
			Details: map[string]interface{}{
				"requested":       qe.Requested,
				"projected_bytes": qe.ProjectedBytes,
				"limit_bytes":     qe.LimitBytes,
			},
		})
	case errors.Is(err, generator.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, reference.ErrEmptyPool):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, engine.ErrPublishDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// loggingMiddleware logs method, path, status and latency per request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
