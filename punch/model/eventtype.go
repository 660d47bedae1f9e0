package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// EventType is the kind of change a record describes. DeleteCreate is only
// produced by reconciliation and is never ingested.
type EventType uint8

const (
	EventUnknown EventType = iota
	EventCreate
	EventDelete
	EventApproveReject
	EventDeleteCreate
)

var eventTypeNames = map[EventType]string{
	EventCreate:        "Create",
	EventDelete:        "Delete",
	EventApproveReject: "ApproveReject",
	EventDeleteCreate:  "Delete_Create",
}

func (e EventType) String() string {
	if name, ok := eventTypeNames[e]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", uint8(e))
}

// Ingestible reports whether the event may appear in a source file.
func (e EventType) Ingestible() bool {
	switch e {
	case EventCreate, EventDelete, EventApproveReject:
		return true
	}
	return false
}

func ParseEventType(s string) (EventType, error) {
	s = strings.TrimSpace(s)
	for e, name := range eventTypeNames {
		if strings.EqualFold(name, s) {
			return e, nil
		}
	}
	return EventUnknown, fmt.Errorf("unknown event type %q", s)
}

func (e EventType) Value() (driver.Value, error) {
	if _, ok := eventTypeNames[e]; !ok {
		return nil, fmt.Errorf("cannot store event type %d", uint8(e))
	}
	return e.String(), nil
}

func (e *EventType) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*e = EventUnknown
		return nil
	default:
		return fmt.Errorf("cannot scan %T into EventType", value)
	}
	parsed, err := ParseEventType(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

func (e EventType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}
