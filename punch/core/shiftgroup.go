package core

import (
	"sort"
	"time"

	"punchexport.com/punchexport/punch/model"
	"punchexport.com/punchexport/utils"
)

const DefaultShiftMaxGap = 14 * time.Hour

// GroupKey identifies a shift group: the employee and the time of the
// group's first punch.
type GroupKey struct {
	EmployeeExternalID int
	Start              time.Time
}

func (k GroupKey) Less(o GroupKey) bool {
	if k.EmployeeExternalID != o.EmployeeExternalID {
		return k.EmployeeExternalID < o.EmployeeExternalID
	}
	return k.Start.Before(o.Start)
}

type ShiftGroup struct {
	Key     GroupKey
	Punches []Punch
}

// startsShift reports whether p opens a new shift by itself.
func startsShift(p Punch) bool {
	return p.ClockType == model.ShiftBegin && p.EventType == model.EventCreate
}

// closedBy reports whether the ShiftBegin Create p starts a new group: the
// group already holds a shift begin, or a later-shift punch (end or break)
// that is not a deletion. Deletes and corrections of a ShiftBegin stay with
// the begin that follows them.
func (g *ShiftGroup) closedBy(p Punch) bool {
	if !startsShift(p) {
		return false
	}
	for _, q := range g.Punches {
		if startsShift(q) {
			return true
		}
		if q.ClockType != model.ShiftBegin && q.EventType != model.EventDelete {
			return true
		}
	}
	return false
}

// SplitShifts cuts one employee's punches, sorted by time, into groups. A
// group ends when a punch is more than maxGap after the group's first punch,
// or when a ShiftBegin Create follows a begin, end or break of the group.
func SplitShifts(punches []Punch, maxGap time.Duration) []ShiftGroup {
	var groups []ShiftGroup
	var current *ShiftGroup

	for _, p := range punches {
		if current == nil || p.Time().Sub(current.Key.Start) > maxGap || current.closedBy(p) {
			groups = append(groups, ShiftGroup{
				Key: GroupKey{EmployeeExternalID: p.EmployeeExternalID, Start: p.Time()},
			})
			current = &groups[len(groups)-1]
		}
		current.Punches = append(current.Punches, p)
	}
	return groups
}

// GroupShifts splits every employee's punches into shift groups, ordered by
// employee then start time.
func GroupShifts(punches []Punch, maxGap time.Duration) []ShiftGroup {
	byEmployee := utils.GroupBy(punches, func(p Punch) int { return p.EmployeeExternalID })

	employees := make([]int, 0, len(byEmployee))
	for emp := range byEmployee {
		employees = append(employees, emp)
	}
	sort.Ints(employees)

	var groups []ShiftGroup
	for _, emp := range employees {
		list := byEmployee[emp]
		sortPunches(list)
		groups = append(groups, SplitShifts(list, maxGap)...)
	}
	return groups
}

func sortPunches(punches []Punch) {
	sort.SliceStable(punches, func(i, j int) bool {
		ti, tj := punches[i].Time(), punches[j].Time()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return punches[i].RecordID < punches[j].RecordID
	})
}
