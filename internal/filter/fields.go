package filter

import (
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/event"
)

type kind int

const (
	kindString kind = iota
	kindNumber
	kindBool
)

func (k kind) String() string {
	switch k {
	case kindNumber:
		return "number"
	case kindBool:
		return "bool"
	}
	return "string"
}

type value struct {
	s string
	n float64
	b bool
}

type field struct {
	kind    kind
	resolve func(ev *event.Event, loc *time.Location) value
}

func str(fn func(ev *event.Event) string) field {
	return field{kind: kindString, resolve: func(ev *event.Event, _ *time.Location) value {
		return value{s: fn(ev)}
	}}
}

// fields maps every filterable name onto its resolver. Detail fields
// resolve to "" on events of another category.
var fields = map[string]field{
	"id":         str(func(ev *event.Event) string { return ev.ID }),
	"event_type": str(func(ev *event.Event) string { return ev.EventType }),
	"category":   str(func(ev *event.Event) string { return string(ev.Category()) }),
	"door_id":    str(func(ev *event.Event) string { return ev.DoorID }),
	"door_name":  str(func(ev *event.Event) string { return ev.DoorName }),
	"location":   str(func(ev *event.Event) string { return ev.Location }),
	"details":    str(details),
	"cardholder_id": str(func(ev *event.Event) string {
		a, _ := ev.Detail.(event.Access)
		return a.CardholderID
	}),
	"cardholder_name": str(func(ev *event.Event) string {
		a, _ := ev.Detail.(event.Access)
		return a.CardholderName
	}),
	"access_group": str(func(ev *event.Event) string {
		a, _ := ev.Detail.(event.Access)
		return a.AccessGroup
	}),
	"result": str(func(ev *event.Event) string {
		a, _ := ev.Detail.(event.Access)
		return string(a.Result)
	}),
	"severity": str(func(ev *event.Event) string {
		switch d := ev.Detail.(type) {
		case event.Alarm:
			return string(d.Severity)
		case event.Fault:
			return string(d.Severity)
		}
		return ""
	}),
	"controller_id": str(func(ev *event.Event) string {
		s, _ := ev.Detail.(event.System)
		return s.ControllerID
	}),
	"weekday": {kind: kindString, resolve: func(ev *event.Event, loc *time.Location) value {
		return value{s: strings.ToLower(ev.Timestamp.In(loc).Weekday().String())}
	}},
	"hour": {kind: kindNumber, resolve: func(ev *event.Event, loc *time.Location) value {
		return value{n: float64(ev.Timestamp.In(loc).Hour())}
	}},
	"weekend": {kind: kindBool, resolve: func(ev *event.Event, loc *time.Location) value {
		wd := ev.Timestamp.In(loc).Weekday()
		return value{b: wd == time.Saturday || wd == time.Sunday}
	}},
}

func details(ev *event.Event) string {
	switch d := ev.Detail.(type) {
	case event.Access:
		return d.Details
	case event.Door:
		return d.Details
	case event.Alarm:
		return d.Details
	case event.Fault:
		return d.Details
	case event.System:
		return d.Details
	}
	return ""
}
