package core

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"punchexport.com/punchexport/punch/model"
	"punchexport.com/punchexport/utils"
)

const DefaultPadding = 2 * time.Hour

type HeaderOptions struct {
	Source      string
	MessageType string
	CompanyID   string
	Locale      string
	BatchPrefix string
}

type BuildOptions struct {
	Header            HeaderOptions
	MealBreakRequired bool
	Padding           time.Duration
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Header: HeaderOptions{
			Source:      "Host",
			MessageType: "TAS",
			CompanyID:   "01",
			Locale:      "English (United States)",
			BatchPrefix: "BT",
		},
		Padding: DefaultPadding,
	}
}

type DocumentBuilder struct {
	opts BuildOptions
	log  logrus.FieldLogger
}

func NewDocumentBuilder(opts BuildOptions, log logrus.FieldLogger) *DocumentBuilder {
	return &DocumentBuilder{opts: opts, log: log}
}

// Build renders one warehouse's sub-groups. Sub-groups are ordered by
// employee, shift start and event priority so a retraction always precedes
// the matching merge. Sub-groups that cannot be rendered are logged and left
// out.
func (b *DocumentBuilder) Build(warehouse string, batchID int64, groups []SubGroup) *Document {
	ordered := make([]SubGroup, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, c := ordered[i], ordered[j]
		if a.Key.Less(c.Key) || c.Key.Less(a.Key) {
			return a.Key.Less(c.Key)
		}
		return eventPriority(a.EventType) < eventPriority(c.EventType)
	})

	doc := &Document{
		Header: Header{
			Source:      b.opts.Header.Source,
			BatchID:     b.opts.Header.BatchPrefix + strconv.FormatInt(batchID, 10),
			MessageType: b.opts.Header.MessageType,
			CompanyID:   b.opts.Header.CompanyID,
			Locale:      b.opts.Header.Locale,
		},
	}

	for _, g := range ordered {
		data, err := b.transaction(warehouse, g)
		if err != nil {
			b.log.WithFields(logrus.Fields{
				"warehouse":   warehouse,
				"employee":    g.Key.EmployeeExternalID,
				"group_start": g.Key.Start,
				"event_type":  g.EventType.String(),
			}).WithError(err).Warn("transaction skipped")
			continue
		}
		doc.add(data)
	}
	return doc
}

func (b *DocumentBuilder) transaction(warehouse string, g SubGroup) (TASData, error) {
	employee := strconv.Itoa(g.Key.EmployeeExternalID)

	switch g.EventType {
	case model.EventCreate:
		merge, err := b.mergeRange(warehouse, employee, g.Punches)
		if err != nil {
			return TASData{}, err
		}
		return TASData{Merge: merge}, nil
	case model.EventDelete:
		return deleteRange(warehouse, employee, g.Punches, func(p Punch) *time.Time { return p.Before })
	case model.EventDeleteCreate:
		return deleteRange(warehouse, employee, g.Punches, func(p Punch) *time.Time { return p.After })
	case model.EventApproveReject:
		return TASData{}, fmt.Errorf("%w: %s reached the document builder", ErrUnexpectedEvent, g.EventType)
	}
	return TASData{}, fmt.Errorf("%w: %s", ErrUnknownEventType, g.EventType)
}

func (b *DocumentBuilder) mergeRange(warehouse, employee string, punches []Punch) (*MergeRange, error) {
	clockIn := pickTime(punches, model.ShiftBegin, true)
	clockOut := pickTime(punches, model.ShiftEnd, false)
	if clockIn == nil && clockOut == nil {
		return nil, ErrNoShiftBoundary
	}
	if clockIn != nil && clockOut != nil && clockOut.Before(*clockIn) {
		return nil, ErrInvertedShift
	}

	var start, end time.Time
	if clockIn != nil {
		start = clockIn.Add(-b.opts.Padding)
	} else {
		start = clockOut.Add(-b.opts.Padding)
	}
	if clockOut != nil {
		end = clockOut.Add(b.opts.Padding)
	} else {
		end = clockIn.Add(b.opts.Padding)
	}

	merge := &MergeRange{
		Warehouse:         warehouse,
		EmployeeUserID:    employee,
		StartDateForMerge: utils.FormatExportTime(&start),
		EndDateForMerge:   utils.FormatExportTime(&end),
		ClockInClockOut: ClockInClockOut{
			EmpClockIn:  utils.FormatExportTime(clockIn),
			EmpClockOut: utils.FormatExportTime(clockOut),
		},
	}

	if b.opts.MealBreakRequired {
		breakIn := pickTime(punches, model.MealBreakBegin, true)
		breakOut := pickTime(punches, model.MealBreakEnd, false)
		if breakIn != nil || breakOut != nil {
			merge.Break = &BreakRange{
				BreakStartTime: utils.FormatExportTime(breakIn),
				BreakEndTime:   utils.FormatExportTime(breakOut),
				Activity:       unpaidBreakActivity,
			}
		}
	}
	return merge, nil
}

// pickTime returns the corrected after time for clock if there is one,
// otherwise the earliest or latest after time.
func pickTime(punches []Punch, clock model.ClockType, earliest bool) *time.Time {
	var picked *time.Time
	for _, p := range punches {
		if p.ClockType != clock || p.After == nil {
			continue
		}
		if p.Corrected {
			return p.After
		}
		if picked == nil || (earliest && p.After.Before(*picked)) || (!earliest && p.After.After(*picked)) {
			picked = p.After
		}
	}
	return picked
}

func deleteRange(warehouse, employee string, punches []Punch, at func(Punch) *time.Time) (TASData, error) {
	var first, last *time.Time
	for _, p := range punches {
		t := at(p)
		if t == nil {
			continue
		}
		if first == nil || t.Before(*first) {
			first = t
		}
		if last == nil || t.After(*last) {
			last = t
		}
	}
	if first == nil {
		return TASData{}, fmt.Errorf("no punch times to delete")
	}
	return TASData{Delete: &DeleteClockInRange{
		Warehouse:       warehouse,
		EmployeeUserID:  employee,
		StartDateForDel: utils.FormatExportTime(first),
		EndDateForDel:   utils.FormatExportTime(last),
	}}, nil
}
