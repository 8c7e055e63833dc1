// Package budget estimates the storage cost of a generated dataset and
// decides whether a requested event count fits the configured quota.
package budget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/event"
)

// ErrQuotaExceeded is wrapped by every quota rejection.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// QuotaError describes a rejected generation request.
type QuotaError struct {
	Requested      int
	ProjectedBytes int64
	LimitBytes     int64
	Message        string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrQuotaExceeded, e.Message)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// UsageProbe reports bytes already held by persisted data. The value is
// advisory and may lag behind concurrent writers.
type UsageProbe interface {
	UsedBytes(ctx context.Context) (int64, error)
}

// ProbeFunc adapts a function to UsageProbe.
type ProbeFunc func(ctx context.Context) (int64, error)

func (f ProbeFunc) UsedBytes(ctx context.Context) (int64, error) { return f(ctx) }

// Limits holds the quota settings.
type Limits struct {
	CapacityBytes int64   `json:"capacity_bytes"`  // assumed total capacity
	MaxUsageRatio float64 `json:"max_usage_ratio"` // fraction of capacity usable
	MaxCount      int     `json:"max_count"`       // absolute ceiling, independent of usage
	MinCount      int     `json:"min_count"`       // floor for RecommendedMax
}

// DefaultLimits: 100 MiB capacity, 80% usable, 1k–200k events.
func DefaultLimits() Limits {
	return Limits{
		CapacityBytes: 100 << 20,
		MaxUsageRatio: 0.8,
		MaxCount:      200_000,
		MinCount:      1_000,
	}
}

// Result is the outcome of Validate.
type Result struct {
	Valid          bool   `json:"valid"`
	Message        string `json:"message,omitempty"`
	Requested      int    `json:"requested"`
	UsedBytes      int64  `json:"used_bytes"`
	ProjectedBytes int64  `json:"projected_bytes"`
	LimitBytes     int64  `json:"limit_bytes"`
}

// Err converts an invalid result into a *QuotaError, nil otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &QuotaError{
		Requested:      r.Requested,
		ProjectedBytes: r.ProjectedBytes,
		LimitBytes:     r.LimitBytes,
		Message:        r.Message,
	}
}

// Validator checks requested counts against Limits. It never writes.
type Validator struct {
	limits    Limits
	probe     UsageProbe
	eventSize int64
}

// NewValidator measures the sample event once.
func NewValidator(limits Limits, probe UsageProbe) *Validator {
	return &Validator{limits: limits, probe: probe, eventSize: SampleEventSize()}
}

// Limits returns the configured limits.
func (v *Validator) Limits() Limits { return v.limits }

// EventSize is the per-event byte estimate.
func (v *Validator) EventSize() int64 { return v.eventSize }

// Estimate is the byte cost of n events.
func (v *Validator) Estimate(n int) int64 { return int64(n) * v.eventSize }

func (v *Validator) limitBytes() int64 {
	return int64(float64(v.limits.CapacityBytes) * v.limits.MaxUsageRatio)
}

// Validate approves or rejects requested. Zero always fits. Only a probe
// failure is an error.
func (v *Validator) Validate(ctx context.Context, requested int) (Result, error) {
	res := Result{Requested: requested, LimitBytes: v.limitBytes()}
	if requested < 0 {
		res.Message = fmt.Sprintf("event count %d must not be negative", requested)
		return res, nil
	}
	if requested > v.limits.MaxCount {
		res.Message = fmt.Sprintf("event count %d exceeds maximum of %d", requested, v.limits.MaxCount)
		return res, nil
	}

	used, err := v.used(ctx)
	if err != nil {
		return Result{}, err
	}
	res.UsedBytes = used
	res.ProjectedBytes = used + v.Estimate(requested)
	if requested > 0 && res.ProjectedBytes > res.LimitBytes {
		res.Message = fmt.Sprintf("projected usage %s exceeds %.0f%% of %s capacity",
			formatBytes(res.ProjectedBytes), v.limits.MaxUsageRatio*100, formatBytes(v.limits.CapacityBytes))
		return res, nil
	}
	res.Valid = true
	return res, nil
}

// RecommendedMax is the largest count that fits the current headroom,
// clamped to [MinCount, MaxCount].
func (v *Validator) RecommendedMax(ctx context.Context) (int, error) {
	used, err := v.used(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	if headroom := v.limitBytes() - used; headroom > 0 && v.eventSize > 0 {
		n = int(headroom / v.eventSize)
	}
	return min(max(n, v.limits.MinCount), v.limits.MaxCount), nil
}

func (v *Validator) used(ctx context.Context) (int64, error) {
	if v.probe == nil {
		return 0, nil
	}
	used, err := v.probe.UsedBytes(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage usage probe: %w", err)
	}
	return used, nil
}

// SampleEventSize is the encoded length of a representative access event.
func SampleEventSize() int64 {
	sample := event.Event{
		ID:        event.FormatID(1),
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		EventType: "access_granted",
		DoorID:    "DOOR-001",
		DoorName:  "Main Entrance",
		Location:  "Building A - Lobby",
		Detail: event.Access{
			CardholderID:   "CH-001",
			CardholderName: "John Smith",
			CardNumber:     "100001",
			AccessGroup:    "Engineering Staff",
			Result:         event.ResultGranted,
			Details:        "Access granted",
		},
	}
	data, err := json.Marshal(sample)
	if err != nil {
		panic(fmt.Sprintf("budget: encode sample event: %v", err))
	}
	return int64(len(data))
}

func formatBytes(n int64) string {
	const unit = 1 << 10
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
