package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category is the top-level classification of a synthetic event.
type Category string

const (
	CategoryAccess Category = "access"
	CategoryDoor   Category = "door"
	CategoryAlarm  Category = "alarm"
	CategoryFault  Category = "fault"
	CategorySystem Category = "system"
)

// Categories lists every category in catalog order.
var Categories = []Category{CategoryAccess, CategoryDoor, CategoryAlarm, CategoryFault, CategorySystem}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAccess, CategoryDoor, CategoryAlarm, CategoryFault, CategorySystem:
		return true
	}
	return false
}

// TimestampLayout is the wire format for event timestamps (always UTC).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Event is one generated PACS event. Detail holds the category-specific fields.
type Event struct {
	ID        string
	Timestamp time.Time
	EventType string
	DoorID    string
	DoorName  string
	Location  string
	Detail    Detail
}

// Category is derived from the detail variant.
func (e *Event) Category() Category {
	if e.Detail == nil {
		return ""
	}
	return e.Detail.Category()
}

// FormatID renders a sequence number as EVT-NNNNNN.
func FormatID(seq int) string {
	return fmt.Sprintf("EVT-%06d", seq)
}

// wireEvent is the flat JSON shape shared by every category.
type wireEvent struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	EventType string   `json:"event_type"`
	Category  Category `json:"category"`
	DoorID    string   `json:"door_id"`
	DoorName  string   `json:"door_name"`
	Location  string   `json:"location"`

	CardholderID   string `json:"cardholder_id,omitempty"`
	CardholderName string `json:"cardholder_name,omitempty"`
	CardNumber     string `json:"card_number,omitempty"`
	AccessGroup    string `json:"access_group,omitempty"`
	Result         Result `json:"result,omitempty"`

	Severity Severity `json:"severity,omitempty"`

	ControllerID   string `json:"controller_id,omitempty"`
	ControllerName string `json:"controller_name,omitempty"`

	Details string `json:"details,omitempty"`
}

// MarshalJSON flattens the detail variant next to the common fields.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp.UTC().Format(TimestampLayout),
		EventType: e.EventType,
		DoorID:    e.DoorID,
		DoorName:  e.DoorName,
		Location:  e.Location,
	}
	switch d := e.Detail.(type) {
	case Access:
		w.Category = CategoryAccess
		w.CardholderID = d.CardholderID
		w.CardholderName = d.CardholderName
		w.CardNumber = d.CardNumber
		w.AccessGroup = d.AccessGroup
		w.Result = d.Result
		w.Details = d.Details
	case Door:
		w.Category = CategoryDoor
		w.Details = d.Details
	case Alarm:
		w.Category = CategoryAlarm
		w.Severity = d.Severity
		w.Details = d.Details
	case Fault:
		w.Category = CategoryFault
		w.Severity = d.Severity
		w.Details = d.Details
	case System:
		w.Category = CategorySystem
		w.ControllerID = d.ControllerID
		w.ControllerName = d.ControllerName
		w.Details = d.Details
	case nil:
		return nil, fmt.Errorf("event %s: missing detail", e.ID)
	default:
		return nil, fmt.Errorf("event %s: unknown detail type %T", e.ID, e.Detail)
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the detail variant from the category field.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return fmt.Errorf("event %s: timestamp: %w", w.ID, err)
	}
	*e = Event{
		ID:        w.ID,
		Timestamp: ts.UTC(),
		EventType: w.EventType,
		DoorID:    w.DoorID,
		DoorName:  w.DoorName,
		Location:  w.Location,
	}
	switch w.Category {
	case CategoryAccess:
		e.Detail = Access{
			CardholderID:   w.CardholderID,
			CardholderName: w.CardholderName,
			CardNumber:     w.CardNumber,
			AccessGroup:    w.AccessGroup,
			Result:         w.Result,
			Details:        w.Details,
		}
	case CategoryDoor:
		e.Detail = Door{Details: w.Details}
	case CategoryAlarm:
		e.Detail = Alarm{Severity: w.Severity, Details: w.Details}
	case CategoryFault:
		e.Detail = Fault{Severity: w.Severity, Details: w.Details}
	case CategorySystem:
		e.Detail = System{ControllerID: w.ControllerID, ControllerName: w.ControllerName, Details: w.Details}
	default:
		return fmt.Errorf("event %s: unknown category %q", w.ID, w.Category)
	}
	return nil
}
