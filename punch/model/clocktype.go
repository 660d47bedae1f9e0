package model

import "strings"

type ClockType string

const (
	ShiftBegin     ClockType = "ShiftBegin"
	ShiftEnd       ClockType = "ShiftEnd"
	MealBreakBegin ClockType = "MealBreakBegin"
	MealBreakEnd   ClockType = "MealBreakEnd"
	RestBreakBegin ClockType = "RestBreakBegin"
	RestBreakEnd   ClockType = "RestBreakEnd"
)

var knownClockTypes = []ClockType{ShiftBegin, ShiftEnd, MealBreakBegin, MealBreakEnd, RestBreakBegin, RestBreakEnd}

// NormalizeClockType maps case variants onto the known constants. Unknown
// values are kept as given.
func NormalizeClockType(s string) ClockType {
	s = strings.TrimSpace(s)
	for _, ct := range knownClockTypes {
		if strings.EqualFold(string(ct), s) {
			return ct
		}
	}
	return ClockType(s)
}
