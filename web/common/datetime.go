package common

import (
	"encoding/json"
	"fmt"
	"time"
)

// LocalDateTime is a wall-clock time without zone, as the staging search
// range is given in the warehouse's local time.
type LocalDateTime struct {
	time.Time
}

const dateTimeLayout = "2006-01-02T15:04:05"

func (l *LocalDateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		l.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date time %q, expected yyyy-MM-ddTHH:mm:ss", s)
	}
	l.Time = t
	return nil
}
