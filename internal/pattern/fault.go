package pattern

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/event"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
)

// FaultConfig controls the recurring sensor fault.
type FaultConfig struct {
	DoorMatch    string // substring of the faulty door's name
	IntervalDays int
}

// DefaultFault is a weekly fault on the server room door.
func DefaultFault() FaultConfig {
	return FaultConfig{DoorMatch: "Server Room", IntervalDays: 7}
}

// Faults emits one sensor_fault every IntervalDays starting on days[0], at a
// random time of day. Without a matching door it returns nothing.
func Faults(rng *rand.Rand, cfg FaultConfig, doors []reference.Door, days []time.Time) []event.Event {
	door, ok := findDoor(doors, func(d reference.Door) bool { return strings.Contains(d.Name, cfg.DoorMatch) })
	if !ok {
		return nil
	}
	step := cfg.IntervalDays
	if step < 1 {
		step = 1
	}

	var out []event.Event
	for i := 0; i < len(days); i += step {
		offset := time.Duration(rng.Int64N(int64(24*time.Hour/time.Millisecond))) * time.Millisecond
		out = append(out, event.Event{
			ID:        fmt.Sprintf("%s%06d", faultIDPrefix, len(out)+1),
			Timestamp: days[i].Add(offset).UTC(),
			EventType: "sensor_fault",
			DoorID:    door.ID,
			DoorName:  door.Name,
			Location:  door.Location,
			Detail: event.Fault{
				Severity: event.SeverityMedium,
				Details:  "Recurring door position sensor fault",
			},
		})
	}
	return out
}
