package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"punchexport.com/punchexport/punch/model"
)

var sourceHeader = strings.Join([]string{
	"changeId", "locationId", "locationExternalId", "lastModifiedDt", "lastModifiedBy",
	"lastModifiedByExternalId", "employeeId", "employeeExternalId", "timeClockId", "clockType",
	"beforeTime", "beforeLocationId", "beforeLocation", "beforeWorkRoleId", "beforeWorkRole",
	"beforeSource", "beforeNote", "afterTime", "afterLocationId", "afterLocation",
	"afterWorkRoleId", "afterWorkRole", "afterSource", "afterNote", "eventType",
}, ",")

type line struct {
	change   string
	location string
	employee int
	clock    model.ClockType
	before   string
	after    string
	event    string
}

func (l line) String() string {
	fields := make([]string, changeRecordFields)
	fields[colChangeID] = l.change
	fields[colLocationID] = "L" + l.location
	fields[colLocationExternalID] = l.location
	fields[colLastModifiedDt] = "2024-03-01T00:00:00Z"
	fields[colLastModifiedBy] = "manager"
	fields[colLastModifiedByExt] = "900"
	fields[colEmployeeID] = "E" + strconv.Itoa(l.employee)
	fields[colEmployeeExternalID] = strconv.Itoa(l.employee)
	fields[colTimeClockID] = "TC-" + l.change
	fields[colClockType] = string(l.clock)
	fields[colBeforeTime] = l.before
	fields[colAfterTime] = l.after
	fields[colAfterWorkRole] = "Picker"
	fields[colEventType] = l.event
	return strings.Join(fields, ",")
}

func source(lines ...line) string {
	var b strings.Builder
	b.WriteString(sourceHeader)
	b.WriteString("\n")
	for _, l := range lines {
		b.WriteString(l.String())
		b.WriteString("\n")
	}
	return b.String()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func seedLocations(t *testing.T, db *gorm.DB, locations ...model.WarehouseLocation) {
	t.Helper()
	require.NoError(t, db.Create(&locations).Error)
}

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tp(s string) *time.Time {
	t := ts(s)
	return &t
}

func punch(emp int, clock model.ClockType, event model.EventType, before, after string) Punch {
	p := Punch{
		EmployeeExternalID: emp,
		LocationExternalID: 10,
		WarehouseID:        "WH1",
		ClockType:          clock,
		EventType:          event,
	}
	if before != "" {
		p.Before = tp(before)
	}
	if after != "" {
		p.After = tp(after)
	}
	return p
}

type memDestination struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (d *memDestination) Put(_ context.Context, name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.files == nil {
		d.files = map[string][]byte{}
	}
	d.files[name] = append([]byte(nil), data...)
	return nil
}

type memDestinations map[string]*memDestination

func (m memDestinations) Lookup(warehouse string) (Destination, bool) {
	d, ok := m[warehouse]
	if !ok {
		return nil, false
	}
	return d, true
}

type recordingNotifier struct {
	infos  []string
	errors []string
}

func (n *recordingNotifier) Info(message string) error {
	n.infos = append(n.infos, message)
	return nil
}

func (n *recordingNotifier) Error(message string) error {
	n.errors = append(n.errors, message)
	return fmt.Errorf("notifier offline")
}
