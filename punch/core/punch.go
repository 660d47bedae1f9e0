package core

import (
	"time"

	"github.com/sirupsen/logrus"

	"punchexport.com/punchexport/punch/model"
)

// Punch is a staged change resolved to its warehouse with times in the
// location's wall clock.
type Punch struct {
	RecordID           int64
	ChangeID           string
	EmployeeExternalID int
	LocationExternalID int
	WarehouseID        string
	ClockType          model.ClockType
	EventType          model.EventType
	Before             *time.Time
	After              *time.Time
	Current            bool
	// Corrected is set on a Create whose after time came from an
	// ApproveReject.
	Corrected bool
}

// Time orders punches: the after time, else the before time.
func (p Punch) Time() time.Time {
	if p.After != nil {
		return *p.After
	}
	if p.Before != nil {
		return *p.Before
	}
	return time.Time{}
}

type PunchStats struct {
	Unresolved int
	UTC        int
}

// ToPunches resolves warehouses and converts times to local wall clock.
// Records whose location has no warehouse are dropped.
func ToPunches(records []model.ChangeRecord, locations LocationLookup, log logrus.FieldLogger) ([]Punch, PunchStats) {
	var stats PunchStats
	warned := map[int]bool{}
	punches := make([]Punch, 0, len(records))

	for _, rec := range records {
		loc, ok := locations.Resolve(rec.LocationExternalID)
		if !ok {
			stats.Unresolved++
			if !warned[rec.LocationExternalID] {
				warned[rec.LocationExternalID] = true
				log.WithField("location", rec.LocationExternalID).Warn("no warehouse mapping, records excluded")
			}
			continue
		}

		zone := loc.Zone
		if zone == nil {
			stats.UTC++
			zone = time.UTC
			if !warned[rec.LocationExternalID] {
				warned[rec.LocationExternalID] = true
				log.WithFields(logrus.Fields{"location": rec.LocationExternalID, "time_zone": loc.TimeZoneName}).
					Warn("no usable time zone, using UTC")
			}
		}

		punches = append(punches, Punch{
			RecordID:           rec.ID,
			ChangeID:           rec.TimeClockChangeID,
			EmployeeExternalID: rec.EmployeeExternalID,
			LocationExternalID: rec.LocationExternalID,
			WarehouseID:        loc.WarehouseID,
			ClockType:          rec.ClockType,
			EventType:          rec.EventType,
			Before:             inZone(rec.BeforeChangeClockTime, zone),
			After:              inZone(rec.AfterChangeClockTime, zone),
			Current:            rec.IsCurrent,
		})
	}
	return punches, stats
}

func inZone(t *time.Time, zone *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	local := t.In(zone)
	return &local
}
