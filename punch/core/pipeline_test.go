package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"punchexport.com/punchexport/punch/model"
)

var runAt = time.Date(2024, 3, 5, 1, 2, 3, 0, time.UTC)

type pipelineFixture struct {
	db       *gorm.DB
	pipeline *Pipeline
	wh1      *memDestination
	notifier *recordingNotifier
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	db := newTestDB(t)
	log, _ := newTestLogger()
	seedLocations(t, db,
		model.WarehouseLocation{LocationID: 10, WarehouseID: "WH1", TimeZone: "Central Standard Time"},
		model.WarehouseLocation{LocationID: 20, WarehouseID: "WH2", TimeZone: "UTC"},
	)

	f := &pipelineFixture{db: db, wh1: &memDestination{}, notifier: &recordingNotifier{}}
	f.pipeline = NewPipeline(DefaultPipelineOptions(), db, memDestinations{"WH1": f.wh1}, f.notifier, log)
	f.pipeline.now = func() time.Time { return runAt }
	return f
}

func (f *pipelineFixture) run(t *testing.T, input string) *RunReport {
	t.Helper()
	report, err := f.pipeline.Run(context.Background(), "punches.csv", strings.NewReader(input))
	require.NoError(t, err)
	return report
}

func TestPipelineEndToEnd(t *testing.T) {
	f := newPipelineFixture(t)

	report := f.run(t, source(
		line{change: "c1", location: "10", employee: 42, clock: model.ShiftBegin, after: "2024-03-04T15:00:00Z", event: "Create"},
		line{change: "c2", location: "10_US", employee: 42, clock: model.ShiftEnd, after: "2024-03-04T23:00:00Z", event: "Create"},
		line{change: "c3", location: "20", employee: 7, clock: model.ShiftBegin, after: "2024-03-04T08:00:00Z", event: "Create"},
		line{change: "c4", location: "99", employee: 8, clock: model.ShiftBegin, after: "2024-03-04T08:00:00Z", event: "Create"},
	))

	assert.Equal(t, int64(1), report.BatchID)
	assert.Equal(t, 4, report.Ingest.Inserted)
	assert.Equal(t, 4, report.Correlated)
	assert.Equal(t, 1, report.Unresolved)
	assert.Equal(t, 2, report.Groups)
	require.Len(t, report.Documents, 2)

	wh1 := report.Documents[0]
	assert.Equal(t, "WH1", wh1.Warehouse)
	assert.True(t, wh1.Delivered)
	assert.Equal(t, 1, wh1.Transactions)
	assert.Equal(t, "TAS_WH1_20240305010203_1.xml", wh1.FileName)

	data, ok := f.wh1.files[wh1.FileName]
	require.True(t, ok)
	assert.Equal(t, wh1.Data, data)
	body := string(data)
	assert.Contains(t, body, "<Batch_ID>BT1</Batch_ID>")
	assert.Contains(t, body, "<StartDateForMerge>03/04/2024 07:00:00</StartDateForMerge>")
	assert.Contains(t, body, "<EndDateForMerge>03/04/2024 19:00:00</EndDateForMerge>")
	assert.Contains(t, body, "<EmpClockIn>03/04/2024 09:00:00</EmpClockIn>")
	assert.Contains(t, body, "<EmpClockOut>03/04/2024 17:00:00</EmpClockOut>")

	wh2 := report.Documents[1]
	assert.Equal(t, "WH2", wh2.Warehouse)
	assert.False(t, wh2.Delivered)
	assert.Equal(t, ErrNoDestination.Error(), wh2.Skipped)

	var run model.ExportRun
	require.NoError(t, f.db.Preload("Documents").First(&run, "id = ?", report.RunID).Error)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 4, run.Inserted)
	assert.Equal(t, 1, run.Unresolved)
	require.Len(t, run.Documents, 1)
	assert.Equal(t, "TAS_WH1_20240305010203_1.xml", run.Documents[0].FileName)
	assert.True(t, run.Documents[0].Delivered)

	require.Len(t, f.notifier.infos, 1)
	assert.Contains(t, f.notifier.infos[0], "WH1: TAS_WH1_20240305010203_1.xml, 1 transactions")
	assert.Contains(t, f.notifier.infos[0], "WH2: skipped (no destination configured)")
	assert.Empty(t, f.notifier.errors)
}

func TestPipelineRepeatedInputExportsNothing(t *testing.T) {
	f := newPipelineFixture(t)
	input := source(
		line{change: "c1", location: "10", employee: 42, clock: model.ShiftBegin, after: "2024-03-04T15:00:00Z", event: "Create"},
		line{change: "c2", location: "10", employee: 42, clock: model.ShiftEnd, after: "2024-03-04T23:00:00Z", event: "Create"},
	)

	first := f.run(t, input)
	require.Len(t, first.Documents, 1)

	second := f.run(t, input)
	assert.Equal(t, 0, second.Ingest.Inserted)
	assert.Equal(t, 2, second.Ingest.Duplicates)
	assert.Equal(t, 0, second.Correlated)
	assert.Empty(t, second.Documents)
	assert.Len(t, f.wh1.files, 1)
}

func TestPipelineBatchIDsAdvanceEveryRun(t *testing.T) {
	f := newPipelineFixture(t)
	a := source(
		line{change: "c1", location: "10", employee: 42, clock: model.ShiftBegin, after: "2024-03-04T15:00:00Z", event: "Create"},
	)
	b := source(
		line{change: "c2", location: "10", employee: 42, clock: model.ShiftEnd, after: "2024-03-04T23:00:00Z", event: "Create"},
	)

	var ids []int64
	for _, input := range []string{a, a, b} {
		ids = append(ids, f.run(t, input).BatchID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)

	var logged []int64
	require.NoError(t, f.db.Model(&model.ExportRun{}).Order("batch_id").Pluck("batch_id", &logged).Error)
	assert.Equal(t, []int64{1, 2, 3}, logged)

	_, err := f.pipeline.Run(context.Background(), "broken.csv", iotest.ErrReader(errors.New("disk gone")))
	require.Error(t, err)
	assert.Equal(t, int64(5), f.run(t, a).BatchID)
}

func TestPipelineCorrectionAcrossRuns(t *testing.T) {
	f := newPipelineFixture(t)

	f.run(t, source(
		line{change: "c1", location: "10", employee: 42, clock: model.ShiftBegin, after: "2024-03-04T15:00:00Z", event: "Create"},
		line{change: "c2", location: "10", employee: 42, clock: model.ShiftEnd, after: "2024-03-04T23:00:00Z", event: "Create"},
	))
	report := f.run(t, source(
		line{change: "c3", location: "10", employee: 42, clock: model.ShiftBegin,
			before: "2024-03-04T15:00:00Z", after: "2024-03-04T15:15:00Z", event: "ApproveReject"},
	))

	assert.Equal(t, int64(2), report.BatchID)
	assert.Equal(t, 3, report.Correlated)
	require.Len(t, report.Documents, 1)
	doc := report.Documents[0]
	assert.Equal(t, 2, doc.Transactions)
	assert.Equal(t, "TAS_WH1_20240305010203_2.xml", doc.FileName)

	body := string(f.wh1.files[doc.FileName])
	deleteAt := strings.Index(body, "<DeleteClockInRange>")
	mergeAt := strings.Index(body, "<MergeRange>")
	require.NotEqual(t, -1, deleteAt)
	require.NotEqual(t, -1, mergeAt)
	assert.Less(t, deleteAt, mergeAt)
	assert.Contains(t, body, "<StartDateForDel>03/04/2024 09:00:00</StartDateForDel>")
	assert.Contains(t, body, "<EmpClockIn>03/04/2024 09:15:00</EmpClockIn>")
	assert.Contains(t, body, "<StartDateForMerge>03/04/2024 07:15:00</StartDateForMerge>")
	assert.Contains(t, body, "<EmpClockOut>03/04/2024 17:00:00</EmpClockOut>")
}

func TestPipelineIsDeterministic(t *testing.T) {
	var lines []line
	for emp := 1; emp <= 20; emp++ {
		day := fmt.Sprintf("2024-03-%02d", 4+emp%3)
		id := func(n int) string { return fmt.Sprintf("e%d-%d", emp, n) }
		lines = append(lines,
			line{change: id(1), location: "10", employee: emp, clock: model.ShiftBegin, after: day + "T14:00:00Z", event: "Create"},
			line{change: id(2), location: "10", employee: emp, clock: model.MealBreakBegin, after: day + "T18:00:00Z", event: "Create"},
			line{change: id(3), location: "10", employee: emp, clock: model.MealBreakEnd, after: day + "T18:30:00Z", event: "Create"},
			line{change: id(4), location: "10", employee: emp, clock: model.ShiftEnd, after: day + "T22:00:00Z", event: "Create"},
			line{change: id(5), location: "10", employee: emp, clock: model.ShiftBegin,
				before: day + "T14:00:00Z", after: day + "T14:10:00Z", event: "ApproveReject"},
		)
	}
	require.Len(t, lines, 100)
	input := source(lines...)

	first := newPipelineFixture(t).run(t, input)
	second := newPipelineFixture(t).run(t, input)

	require.Len(t, first.Documents, 1)
	require.Len(t, second.Documents, 1)
	assert.Equal(t, 40, first.Documents[0].Transactions)
	assert.Equal(t, first.Documents[0].FileName, second.Documents[0].FileName)
	assert.Equal(t, first.Documents[0].Data, second.Documents[0].Data)
}

func TestPipelineStagingFailure(t *testing.T) {
	f := newPipelineFixture(t)

	report, err := f.pipeline.Run(context.Background(), "broken.csv", iotest.ErrReader(errors.New("disk gone")))
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk gone")
	assert.Empty(t, report.Documents)

	var run model.ExportRun
	require.NoError(t, f.db.First(&run, "id = ?", report.RunID).Error)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "disk gone")

	assert.Empty(t, f.notifier.infos)
	require.Len(t, f.notifier.errors, 1)
	assert.Contains(t, f.notifier.errors[0], "broken.csv")
}

func TestPipelineFailedGroupDoesNotStopRun(t *testing.T) {
	f := newPipelineFixture(t)
	// a retraction can never be staged from a source file
	require.NoError(t, f.db.Create(&model.ChangeRecord{
		LocationExternalID: 10, EmployeeExternalID: 42, ClockType: model.ShiftBegin,
		EventType: model.EventDeleteCreate, AfterChangeClockTime: tp("2024-03-04 15:00"),
		InsertBatchID: 1, InsertLoadDt: runAt,
	}).Error)

	report := f.run(t, source(
		line{change: "c1", location: "10", employee: 42, clock: model.ShiftBegin, after: "2024-03-04T15:30:00Z", event: "Create"},
		line{change: "c2", location: "10", employee: 43, clock: model.ShiftBegin, after: "2024-03-04T15:00:00Z", event: "Create"},
	))

	assert.Equal(t, 2, report.Groups)
	assert.Equal(t, 1, report.FailedGroups)
	require.Len(t, report.Documents, 1)
	assert.True(t, report.Documents[0].Delivered)
	assert.Equal(t, 1, report.Documents[0].Transactions)
	assert.Contains(t, string(report.Documents[0].Data), "<EmployeeUserId>43</EmployeeUserId>")
}
