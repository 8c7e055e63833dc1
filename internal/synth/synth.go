// Package synth builds single random events from a catalog entry, a
// timestamp and the reference pools.
package synth

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/catalog"
	"github.com/gyaneshwarpardhi/pacsim/internal/event"
	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
)

var details = map[string]string{
	"access_granted":     "Access granted",
	"door_opened":        "Door opened",
	"door_closed":        "Door closed",
	"door_held_open":     "Door held open beyond threshold",
	"door_forced_open":   "Door opened without valid credential",
	"tamper_alarm":       "Reader tamper switch triggered",
	"sensor_fault":       "Door position sensor not responding",
	"controller_offline": "Controller lost communication",
	"controller_online":  "Controller communication restored",
}

// Synthesizer turns sampled types and timestamps into events.
type Synthesizer struct {
	rng         *rand.Rand
	active      []reference.Cardholder
	doors       []reference.Door
	controllers map[string]reference.Controller
}

// New prepares the pools once. cardholders, doors and controllers are not
// modified.
func New(rng *rand.Rand, cardholders []reference.Cardholder, doors []reference.Door, controllers []reference.Controller) *Synthesizer {
	return &Synthesizer{
		rng:         rng,
		active:      reference.ActiveCardholders(cardholders),
		doors:       doors,
		controllers: reference.ControllerIndex(controllers),
	}
}

// Build creates event number seq of type def at ts. A door is picked for
// every event; access events also pick an active cardholder.
func (s *Synthesizer) Build(seq int, ts time.Time, def catalog.Definition) (event.Event, error) {
	if len(s.doors) == 0 {
		return event.Event{}, fmt.Errorf("build %s: no doors: %w", def.Type, reference.ErrEmptyPool)
	}
	door := s.doors[s.rng.IntN(len(s.doors))]
	ev := event.Event{
		ID:        event.FormatID(seq),
		Timestamp: ts.UTC(),
		EventType: def.Type,
		DoorID:    door.ID,
		DoorName:  door.Name,
		Location:  door.Location,
	}

	switch def.Category {
	case event.CategoryAccess:
		if len(s.active) == 0 {
			return event.Event{}, fmt.Errorf("build %s: no active cardholders: %w", def.Type, reference.ErrEmptyPool)
		}
		ch := s.active[s.rng.IntN(len(s.active))]
		a := event.Access{
			CardholderID:   ch.ID,
			CardholderName: ch.Name,
			CardNumber:     ch.CardNumber,
			AccessGroup:    ch.AccessGroup,
			Result:         event.ResultGranted,
			Details:        describe(def),
		}
		if def.Denied() {
			a.Result = event.ResultDenied
		}
		ev.Detail = a
	case event.CategoryDoor:
		ev.Detail = event.Door{Details: describe(def)}
	case event.CategoryAlarm:
		ev.Detail = event.Alarm{Severity: event.SeverityHigh, Details: describe(def)}
	case event.CategoryFault:
		ev.Detail = event.Fault{Severity: event.SeverityMedium, Details: describe(def)}
	case event.CategorySystem:
		sys := event.System{Details: describe(def)}
		if c, ok := s.controllers[door.ControllerID]; ok {
			sys.ControllerID = c.ID
			sys.ControllerName = c.Name
		}
		ev.Detail = sys
	default:
		return event.Event{}, fmt.Errorf("build %s: unknown category %q", def.Type, def.Category)
	}
	return ev, nil
}

func describe(def catalog.Definition) string {
	if def.Reason != "" {
		return def.Reason
	}
	if d, ok := details[def.Type]; ok {
		return d
	}
	return def.Type
}
