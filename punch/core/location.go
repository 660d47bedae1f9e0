package core

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"punchexport.com/punchexport/punch/model"
)

type Location struct {
	ExternalID   int
	WarehouseID  string
	TimeZoneName string
	// Zone is nil when the time zone is missing or unknown.
	Zone *time.Location
}

type LocationLookup interface {
	Resolve(locationExternalID int) (Location, bool)
}

// LocationResolver serves warehouse and time zone lookups from the
// warehouse_location table.
type LocationResolver struct {
	db        *gorm.DB
	log       logrus.FieldLogger
	locations map[int]Location
}

func NewLocationResolver(db *gorm.DB, log logrus.FieldLogger) *LocationResolver {
	return &LocationResolver{db: db, log: log, locations: map[int]Location{}}
}

func (r *LocationResolver) Load(ctx context.Context) error {
	var rows []model.WarehouseLocation
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to fetch warehouse locations: %w", err)
	}

	locations := make(map[int]Location, len(rows))
	for _, row := range rows {
		loc := Location{
			ExternalID:   row.LocationID,
			WarehouseID:  strings.TrimSpace(row.WarehouseID),
			TimeZoneName: row.TimeZone,
		}
		if row.TimeZone != "" {
			zone, err := LoadTimeZone(row.TimeZone)
			if err != nil {
				r.log.WithFields(logrus.Fields{"location": row.LocationID, "time_zone": row.TimeZone}).
					Warn("invalid time zone, punches stay in UTC")
			} else {
				loc.Zone = zone
			}
		}
		locations[row.LocationID] = loc
	}
	r.locations = locations
	r.log.WithField("locations", len(locations)).Debug("loaded warehouse locations")
	return nil
}

// Resolve reports false when the location is unknown or has no warehouse.
func (r *LocationResolver) Resolve(locationExternalID int) (Location, bool) {
	loc, ok := r.locations[locationExternalID]
	if !ok || loc.WarehouseID == "" {
		return Location{}, false
	}
	return loc, true
}

// ImportLocations upserts warehouse_location rows from the first sheet of an
// xlsx workbook. The header row must name location_id and warehouse_id;
// time_zone is optional.
func ImportLocations(ctx context.Context, db *gorm.DB, r io.Reader) (int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, fmt.Errorf("failed to get rows from sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	columns := map[string]int{}
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idCol, ok := columns["location_id"]
	if !ok {
		return 0, fmt.Errorf("missing location_id column")
	}
	warehouseCol, ok := columns["warehouse_id"]
	if !ok {
		return 0, fmt.Errorf("missing warehouse_id column")
	}
	zoneCol, hasZone := columns["time_zone"]

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var locations []model.WarehouseLocation
	for i, row := range rows[1:] {
		idText := cell(row, idCol)
		if idText == "" {
			continue
		}
		id, err := strconv.Atoi(idText)
		if err != nil {
			return 0, fmt.Errorf("row %d: invalid location_id %q", i+2, idText)
		}
		loc := model.WarehouseLocation{LocationID: id, WarehouseID: cell(row, warehouseCol)}
		if hasZone {
			loc.TimeZone = cell(row, zoneCol)
		}
		locations = append(locations, loc)
	}
	if len(locations) == 0 {
		return 0, nil
	}

	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "location_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"warehouse_id", "time_zone"}),
	}).CreateInBatches(locations, 100).Error
	if err != nil {
		return 0, fmt.Errorf("failed to save warehouse locations: %w", err)
	}
	return len(locations), nil
}
