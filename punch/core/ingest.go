package core

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"punchexport.com/punchexport/punch/model"
	"punchexport.com/punchexport/utils"
)

const changeRecordFields = 25

// field positions in the source file
const (
	colChangeID = iota
	colLocationID
	colLocationExternalID
	colLastModifiedDt
	colLastModifiedBy
	colLastModifiedByExt
	colEmployeeID
	colEmployeeExternalID
	colTimeClockID
	colClockType
	colBeforeTime
	colBeforeLocationID
	colBeforeLocation
	colBeforeWorkRoleID
	colBeforeWorkRole
	colBeforeSource
	colBeforeNote
	colAfterTime
	colAfterLocationID
	colAfterLocation
	colAfterWorkRoleID
	colAfterWorkRole
	colAfterSource
	colAfterNote
	colEventType
)

var suffixedLocation = regexp.MustCompile(`^(\d+)_([A-Z]{2})$`)

type IngestStats struct {
	BatchID    int64         `json:"batchId"`
	Read       int           `json:"read"`
	Inserted   int           `json:"inserted"`
	Duplicates int           `json:"duplicates"`
	Skipped    []IngestError `json:"skipped"`
}

// ParseLocationExternalID accepts a plain integer or the "123_TX" form.
func ParseLocationExternalID(s string) (int, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil {
		return id, nil
	}
	if m := suffixedLocation.FindStringSubmatch(s); m != nil {
		return strconv.Atoi(m[1])
	}
	return 0, fmt.Errorf("invalid location external id %q", s)
}

// ParseChangeRecord converts one source row. The returned error describes why
// the row cannot be staged.
func ParseChangeRecord(row []string) (*model.ChangeRecord, error) {
	if len(row) != changeRecordFields {
		return nil, fmt.Errorf("expected %d fields, got %d", changeRecordFields, len(row))
	}
	field := func(i int) string { return strings.TrimSpace(row[i]) }

	locationID, err := ParseLocationExternalID(row[colLocationExternalID])
	if err != nil {
		return nil, err
	}
	employeeID, err := strconv.Atoi(field(colEmployeeExternalID))
	if err != nil {
		return nil, fmt.Errorf("invalid employee external id %q", field(colEmployeeExternalID))
	}
	clockType := field(colClockType)
	if clockType == "" {
		return nil, fmt.Errorf("missing clock type")
	}
	eventType, err := model.ParseEventType(field(colEventType))
	if err != nil {
		return nil, err
	}
	if !eventType.Ingestible() {
		return nil, fmt.Errorf("event type %s cannot be ingested", eventType)
	}
	lastModified, err := utils.ParseOptionalTime(row[colLastModifiedDt])
	if err != nil {
		return nil, fmt.Errorf("invalid last modified time: %w", err)
	}
	before, err := utils.ParseOptionalTime(row[colBeforeTime])
	if err != nil {
		return nil, fmt.Errorf("invalid before change time: %w", err)
	}
	after, err := utils.ParseOptionalTime(row[colAfterTime])
	if err != nil {
		return nil, fmt.Errorf("invalid after change time: %w", err)
	}
	if before == nil && after == nil {
		return nil, fmt.Errorf("no before or after change time")
	}

	return &model.ChangeRecord{
		TimeClockChangeID:  field(colChangeID),
		LocationID:         field(colLocationID),
		LocationExternalID: locationID,
		LastModifiedDt:     lastModified,
		LastModifiedBy:     field(colLastModifiedBy),
		LastModifiedByExt:  field(colLastModifiedByExt),
		EmployeeID:         field(colEmployeeID),
		EmployeeExternalID: employeeID,
		TimeClockID:        field(colTimeClockID),
		ClockType:          model.NormalizeClockType(clockType),

		BeforeChangeClockTime:       before,
		BeforeChangeClockLocationID: field(colBeforeLocationID),
		BeforeChangeClockLocation:   field(colBeforeLocation),
		BeforeChangeWorkRoleID:      field(colBeforeWorkRoleID),
		BeforeChangeWorkRole:        field(colBeforeWorkRole),
		BeforeChangeClockSource:     field(colBeforeSource),
		BeforeChangeClockNote:       field(colBeforeNote),

		AfterChangeClockTime:       after,
		AfterChangeClockLocationID: field(colAfterLocationID),
		AfterChangeClockLocation:   field(colAfterLocation),
		AfterChangeWorkRoleID:      field(colAfterWorkRoleID),
		AfterChangeWorkRole:        field(colAfterWorkRole),
		AfterChangeClockSource:     field(colAfterSource),
		AfterChangeClockNote:       field(colAfterNote),

		EventType: eventType,
	}, nil
}

// ParseChangeRecords streams the source file to fn, skipping the header line.
// Rows that cannot be parsed are recorded in the returned stats; only an
// error from fn or from the reader stops the scan.
func ParseChangeRecords(r io.Reader, fn func(line int, rec *model.ChangeRecord) error) (*IngestStats, error) {
	stats := &IngestStats{}
	skip := func(line int, reason string) {
		stats.Skipped = append(stats.Skipped, IngestError{Line: line, Reason: reason})
	}

	header := true
	err := utils.EachCSVRow(r, func(line int, row []string) error {
		if header {
			header = false
			return nil
		}
		stats.Read++
		rec, err := ParseChangeRecord(row)
		if err != nil {
			skip(line, err.Error())
			return nil
		}
		return fn(line, rec)
	}, func(line int, err error) {
		header = false
		stats.Read++
		skip(line, err.Error())
	})
	return stats, err
}

func (s *IngestStats) SkippedCount() int {
	return len(s.Skipped)
}

func stampRecord(rec *model.ChangeRecord, batchID int64, loadedAt time.Time) {
	rec.ID = 0
	rec.IsCurrent = true
	rec.InsertBatchID = batchID
	rec.InsertLoadDt = loadedAt
}
