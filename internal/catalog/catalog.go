// Package catalog defines the event-type catalog and the weighted sampler
// that draws from it.
package catalog

import (
	"fmt"
	"math"

	"github.com/gyaneshwarpardhi/pacsim/internal/event"
)

// Definition is one immutable catalog entry.
type Definition struct {
	Weight   int            `json:"weight"`
	Type     string         `json:"type"`
	Category event.Category `json:"category"`
	Reason   string         `json:"reason,omitempty"` // denied-access subtypes only
}

// Denied reports whether the definition describes a rejected access attempt.
func (d Definition) Denied() bool { return d.Reason != "" }

var builtin = []Definition{
	{Weight: 55, Type: "access_granted", Category: event.CategoryAccess},
	{Weight: 3, Type: "access_denied", Category: event.CategoryAccess, Reason: "Invalid card"},
	{Weight: 3, Type: "access_denied", Category: event.CategoryAccess, Reason: "Card expired"},
	{Weight: 2, Type: "access_denied", Category: event.CategoryAccess, Reason: "Outside access schedule"},
	{Weight: 2, Type: "access_denied", Category: event.CategoryAccess, Reason: "Insufficient privileges"},
	{Weight: 12, Type: "door_opened", Category: event.CategoryDoor},
	{Weight: 12, Type: "door_closed", Category: event.CategoryDoor},
	{Weight: 6, Type: "door_held_open", Category: event.CategoryDoor},
	{Weight: 3, Type: "door_forced_open", Category: event.CategoryAlarm},
	{Weight: 2, Type: "tamper_alarm", Category: event.CategoryAlarm},
	{Weight: 3, Type: "sensor_fault", Category: event.CategoryFault},
	{Weight: 4, Type: "controller_offline", Category: event.CategorySystem},
	{Weight: 3, Type: "controller_online", Category: event.CategorySystem},
}

// Default returns a copy of the built-in 13-entry catalog.
func Default() []Definition {
	out := make([]Definition, len(builtin))
	copy(out, builtin)
	return out
}

// TotalWeight sums entry weights.
func TotalWeight(defs []Definition) int {
	total := 0
	for _, d := range defs {
		total += d.Weight
	}
	return total
}

// Distribution assigns a percentage share to each category.
type Distribution map[event.Category]float64

// Validate requires known categories, non-negative shares and a total of 100.
func (d Distribution) Validate() error {
	total := 0.0
	for cat, share := range d {
		if !cat.Valid() {
			return fmt.Errorf("distribution: unknown category %q", cat)
		}
		if share < 0 {
			return fmt.Errorf("distribution: category %q has negative share %v", cat, share)
		}
		total += share
	}
	if math.Abs(total-100) > 0.01 {
		return fmt.Errorf("distribution: shares sum to %v, want 100", total)
	}
	return nil
}

// reweightScale turns percentage points into integer table slots.
const reweightScale = 100

// Reweight rescales defs so that each category's entries together carry the
// share given by dist, keeping relative weights inside a category. Categories
// absent from dist, or given zero, are removed.
func Reweight(defs []Definition, dist Distribution) ([]Definition, error) {
	catTotal := make(map[event.Category]int)
	for _, d := range defs {
		catTotal[d.Category] += d.Weight
	}
	for cat, share := range dist {
		if share > 0 && catTotal[cat] == 0 {
			return nil, fmt.Errorf("distribution: category %q has no catalog entries", cat)
		}
	}

	out := make([]Definition, 0, len(defs))
	for _, d := range defs {
		share := dist[d.Category]
		if share <= 0 || d.Weight <= 0 {
			continue
		}
		w := int(math.Round(share * reweightScale * float64(d.Weight) / float64(catTotal[d.Category])))
		if w < 1 {
			w = 1
		}
		d.Weight = w
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("distribution: no category has a positive share")
	}
	return out, nil
}

// CategoryShares returns each category's share of the total weight (0–1).
func CategoryShares(defs []Definition) map[event.Category]float64 {
	total := TotalWeight(defs)
	out := make(map[event.Category]float64)
	if total == 0 {
		return out
	}
	for _, d := range defs {
		out[d.Category] += float64(d.Weight) / float64(total)
	}
	return out
}
