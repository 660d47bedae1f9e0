package core

import (
	"errors"
	"fmt"
)

var (
	// ErrStagingWrite aborts a run. Batches committed before it stay valid.
	ErrStagingWrite       = errors.New("staging write failed")
	ErrMalformedLine      = errors.New("malformed change record")
	ErrUnknownEventType   = errors.New("unknown event type")
	ErrUnexpectedEvent    = errors.New("unexpected event type")
	ErrNoShiftBoundary    = errors.New("no shift begin or end")
	ErrInvertedShift      = errors.New("shift ends before it begins")
	ErrNoDestination      = errors.New("no destination configured")
	ErrUnresolvedLocation = errors.New("location has no warehouse mapping")
)

// IngestError describes one skipped input line.
type IngestError struct {
	Line   int
	Reason string
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *IngestError) Unwrap() error {
	return ErrMalformedLine
}
