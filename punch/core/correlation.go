package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"punchexport.com/punchexport/punch/model"
	"punchexport.com/punchexport/utils"
)

const employeeChunkSize = 500

// Correlator selects the rows an export run has to look at.
type Correlator struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewCorrelator(db *gorm.DB, log logrus.FieldLogger) *Correlator {
	return &Correlator{db: db, log: log}
}

// Window returns every current row plus the historical rows of the same
// employees whose time lies within window of one of that employee's current
// rows. Rows are ordered by employee, then time.
func (c *Correlator) Window(ctx context.Context, window time.Duration) ([]model.ChangeRecord, error) {
	db := c.db.WithContext(ctx)

	var current []model.ChangeRecord
	if err := db.Where("is_current = ?", true).Find(&current).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch current records: %w", err)
	}
	if len(current) == 0 {
		return nil, nil
	}

	anchors := map[int][]time.Time{}
	for i := range current {
		if t := current[i].EffectiveTime(); t != nil {
			anchors[current[i].EmployeeExternalID] = append(anchors[current[i].EmployeeExternalID], *t)
		}
	}
	employees := make([]int, 0, len(anchors))
	for emp, times := range anchors {
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
		employees = append(employees, emp)
	}
	sort.Ints(employees)

	result := current
	historicalCount := 0
	for _, chunk := range utils.Chunk(employees, employeeChunkSize) {
		var historical []model.ChangeRecord
		err := db.Where("is_current = ? AND emp_external_id IN ?", false, chunk).Find(&historical).Error
		if err != nil {
			return nil, fmt.Errorf("failed to fetch historical records: %w", err)
		}
		for _, rec := range historical {
			if withinWindow(anchors[rec.EmployeeExternalID], rec.EffectiveTime(), window) {
				result = append(result, rec)
				historicalCount++
			}
		}
	}

	SortRecords(result)
	c.log.WithFields(logrus.Fields{
		"current":    len(current),
		"historical": historicalCount,
		"window":     window.String(),
	}).Info("correlation window selected")
	return result, nil
}

// withinWindow reports whether t is within window of any anchor. anchors
// must be sorted.
func withinWindow(anchors []time.Time, t *time.Time, window time.Duration) bool {
	if t == nil || len(anchors) == 0 {
		return false
	}
	lower := t.Add(-window)
	i := sort.Search(len(anchors), func(i int) bool { return !anchors[i].Before(lower) })
	return i < len(anchors) && !anchors[i].After(t.Add(window))
}

func SortRecords(records []model.ChangeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := &records[i], &records[j]
		if a.EmployeeExternalID != b.EmployeeExternalID {
			return a.EmployeeExternalID < b.EmployeeExternalID
		}
		ta, tb := a.EffectiveTime(), b.EffectiveTime()
		switch {
		case ta == nil && tb != nil:
			return true
		case ta != nil && tb == nil:
			return false
		case ta != nil && !ta.Equal(*tb):
			return ta.Before(*tb)
		}
		return a.ID < b.ID
	})
}
