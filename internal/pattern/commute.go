package pattern

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/event"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
)

// CommuteConfig controls the arrival/departure pattern.
type CommuteConfig struct {
	EntranceDoor    string
	Departments     []string
	MaxEmployees    int
	Participation   float64 // per employee per weekday
	Arrival         time.Duration
	ArrivalJitter   time.Duration
	Departure       time.Duration
	DepartureJitter time.Duration
}

// DefaultCommute is 20 office staff badging through the main entrance
// around 08:00 and 17:00.
func DefaultCommute() CommuteConfig {
	return CommuteConfig{
		EntranceDoor:    "Main Entrance",
		Departments:     []string{"Engineering", "Operations", "Finance", "Human Resources", "Sales", "IT"},
		MaxEmployees:    20,
		Participation:   0.9,
		Arrival:         8 * time.Hour,
		ArrivalJitter:   30 * time.Minute,
		Departure:       17 * time.Hour,
		DepartureJitter: 60 * time.Minute,
	}
}

// Commute emits an arrival and a departure per participating employee on
// every weekday in days. The entrance door must exist.
func Commute(rng *rand.Rand, cfg CommuteConfig, cardholders []reference.Cardholder, doors []reference.Door, days []time.Time) ([]event.Event, error) {
	door, ok := findDoor(doors, func(d reference.Door) bool { return d.Name == cfg.EntranceDoor })
	if !ok {
		return nil, fmt.Errorf("commute pattern: no door named %q: %w", cfg.EntranceDoor, reference.ErrEmptyPool)
	}

	staff := commuters(cardholders, cfg)
	out := make([]event.Event, 0, len(staff)*len(days)*2)
	seq := 0
	emit := func(ch reference.Cardholder, ts time.Time, details string) {
		seq++
		out = append(out, event.Event{
			ID:        fmt.Sprintf("%s%06d", commuteIDPrefix, seq),
			Timestamp: ts.UTC(),
			EventType: "access_granted",
			DoorID:    door.ID,
			DoorName:  door.Name,
			Location:  door.Location,
			Detail: event.Access{
				CardholderID:   ch.ID,
				CardholderName: ch.Name,
				CardNumber:     ch.CardNumber,
				AccessGroup:    ch.AccessGroup,
				Result:         event.ResultGranted,
				Details:        details,
			},
		})
	}

	for _, day := range days {
		if !isWeekday(day) {
			continue
		}
		for _, ch := range staff {
			if rng.Float64() >= cfg.Participation {
				continue
			}
			emit(ch, day.Add(jitter(rng, cfg.Arrival, cfg.ArrivalJitter)), "Morning arrival")
			emit(ch, day.Add(jitter(rng, cfg.Departure, cfg.DepartureJitter)), "Evening departure")
		}
	}
	return out, nil
}

// commuters picks up to MaxEmployees active cardholders from the allowed
// departments, in catalog order.
func commuters(all []reference.Cardholder, cfg CommuteConfig) []reference.Cardholder {
	allowed := make(map[string]struct{}, len(cfg.Departments))
	for _, d := range cfg.Departments {
		allowed[d] = struct{}{}
	}
	var out []reference.Cardholder
	for _, ch := range all {
		if len(out) >= cfg.MaxEmployees {
			break
		}
		if _, ok := allowed[ch.Department]; ok && ch.Active() {
			out = append(out, ch)
		}
	}
	return out
}

// jitter returns base ± spread, uniform at millisecond granularity.
func jitter(rng *rand.Rand, base, spread time.Duration) time.Duration {
	ms := spread.Milliseconds()
	if ms <= 0 {
		return base
	}
	return base + time.Duration(rng.Int64N(2*ms+1)-ms)*time.Millisecond
}
