// Package store persists the current generated dataset. There is only ever
// one dataset; saving replaces it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/event"
)

// ErrNotFound is returned when no dataset has been saved.
var ErrNotFound = errors.New("dataset not found")

// Dataset is a persisted generation result.
type Dataset struct {
	ID          string                 `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	StartDate   string                 `json:"start_date"`
	EndDate     string                 `json:"end_date"`
	TargetCount int                    `json:"target_count"`
	Counts      map[event.Category]int `json:"counts"`
	Injected    map[string]int         `json:"injected"`
	Events      []event.Event          `json:"events"`
}

// Store holds the current dataset. UsedBytes satisfies budget.UsageProbe.
type Store interface {
	Save(ctx context.Context, ds *Dataset) error
	Load(ctx context.Context) (*Dataset, error)
	Clear(ctx context.Context) error
	UsedBytes(ctx context.Context) (int64, error)
}

// Encode serializes a dataset the way stores keep it.
func Encode(ds *Dataset) ([]byte, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return nil, fmt.Errorf("encode dataset %s: %w", ds.ID, err)
	}
	return data, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &ds, nil
}
