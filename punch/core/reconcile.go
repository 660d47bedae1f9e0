package core

import (
	"fmt"
	"sort"
	"time"

	"punchexport.com/punchexport/punch/model"
	"punchexport.com/punchexport/utils"
)

// SubGroup is one event-type partition of a reconciled shift group.
type SubGroup struct {
	Key       GroupKey
	EventType model.EventType
	Punches   []Punch
}

func (s SubGroup) WarehouseID() string {
	if len(s.Punches) == 0 {
		return ""
	}
	return s.Punches[0].WarehouseID
}

// Reconcile applies ApproveReject corrections to the group's Create punches
// and partitions the result so deletions precede re-creations.
func Reconcile(group ShiftGroup) ([]SubGroup, error) {
	cooked, err := cook(group.Punches)
	if err != nil {
		return nil, err
	}
	return partition(group.Key, cooked), nil
}

// cook returns a new slice; raw is not modified. Every Create sharing a
// clock type with an ApproveReject is retracted by a Delete_Create clone
// holding its original after time. A Create whose after time equals the
// ApproveReject's before time takes the corrected after time.
func cook(raw []Punch) ([]Punch, error) {
	var creates, corrections []int
	for i, p := range raw {
		switch p.EventType {
		case model.EventCreate:
			creates = append(creates, i)
		case model.EventApproveReject:
			corrections = append(corrections, i)
		case model.EventDelete:
		case model.EventDeleteCreate:
			return nil, fmt.Errorf("%w: %s on staged record %d", ErrUnexpectedEvent, p.EventType, p.RecordID)
		default:
			return nil, fmt.Errorf("%w: %s on staged record %d", ErrUnknownEventType, p.EventType, p.RecordID)
		}
	}

	corrected := map[int]time.Time{}
	retracted := map[int]bool{}
	for _, ri := range corrections {
		r := raw[ri]
		for _, ci := range creates {
			c := raw[ci]
			if c.ClockType != r.ClockType {
				continue
			}
			retracted[ci] = true

			after := c.After
			if t, ok := corrected[ci]; ok {
				after = &t
			}
			if after != nil && r.Before != nil && r.After != nil && after.Equal(*r.Before) {
				corrected[ci] = *r.After
			}
		}
	}

	cooked := make([]Punch, 0, len(raw)+len(retracted))
	for i, p := range raw {
		if p.EventType == model.EventApproveReject {
			continue
		}
		if retracted[i] {
			clone := p
			clone.EventType = model.EventDeleteCreate
			cooked = append(cooked, clone)
		}
		if t, ok := corrected[i]; ok {
			p.After = &t
			p.Corrected = true
		}
		cooked = append(cooked, p)
	}
	return cooked, nil
}

func eventPriority(e model.EventType) int {
	switch e {
	case model.EventDelete:
		return 1
	case model.EventDeleteCreate:
		return 2
	case model.EventCreate:
		return 3
	}
	return 4
}

func partition(key GroupKey, cooked []Punch) []SubGroup {
	byType := utils.GroupBy(cooked, func(p Punch) model.EventType { return p.EventType })

	types := make([]model.EventType, 0, len(byType))
	for e := range byType {
		types = append(types, e)
	}
	sort.Slice(types, func(i, j int) bool {
		pi, pj := eventPriority(types[i]), eventPriority(types[j])
		if pi != pj {
			return pi < pj
		}
		return types[i] < types[j]
	})

	subgroups := make([]SubGroup, 0, len(types))
	for _, e := range types {
		punches := byType[e]
		sortPunches(punches)
		subgroups = append(subgroups, SubGroup{Key: key, EventType: e, Punches: punches})
	}
	return subgroups
}
