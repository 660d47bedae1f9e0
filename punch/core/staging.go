package core

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"punchexport.com/punchexport/punch/model"
)

const DefaultBatchSize = 1000

// StagingStore owns the append-only change log. Callers must not run two
// ingestions against the same store at once.
type StagingStore struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewStagingStore(db *gorm.DB, log logrus.FieldLogger) *StagingStore {
	return &StagingStore{db: db, log: log, now: time.Now}
}

// Reset marks every row historical.
func (s *StagingStore) Reset(ctx context.Context) error {
	return reset(s.db.WithContext(ctx))
}

func reset(tx *gorm.DB) error {
	err := tx.Model(&model.ChangeRecord{}).
		Where("is_current = ?", true).
		Update("is_current", false).Error
	if err != nil {
		return fmt.Errorf("failed to reset current rows: %w", err)
	}
	return nil
}

// NextBatchID is one past the highest id used by a staged row or a logged
// run, so runs that stage nothing still consume their id.
func (s *StagingStore) NextBatchID(ctx context.Context) (int64, error) {
	db := s.db.WithContext(ctx)
	var staged, logged sql.NullInt64
	if err := db.Model(&model.ChangeRecord{}).Select("MAX(insert_batch_id)").Row().Scan(&staged); err != nil {
		return 0, fmt.Errorf("failed to read batch id: %w", err)
	}
	if err := db.Model(&model.ExportRun{}).Select("MAX(batch_id)").Row().Scan(&logged); err != nil {
		return 0, fmt.Errorf("failed to read run batch id: %w", err)
	}
	return max(staged.Int64, logged.Int64) + 1, nil
}

// Insert stages rec as current under batchID unless a row with the same
// natural key exists. It reports whether a row was written.
func (s *StagingStore) Insert(ctx context.Context, rec *model.ChangeRecord, batchID int64) (bool, error) {
	return insertIfAbsent(s.db.WithContext(ctx), rec, batchID, s.now().UTC())
}

// Ingest allocates the next batch id, resets the current flag and stages the
// source file in transactions of batchSize lines. The reset commits together
// with the first batch. On failure the returned stats carry only the batch id.
func (s *StagingStore) Ingest(ctx context.Context, src io.Reader, batchSize int) (*IngestStats, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batchID, err := s.NextBatchID(ctx)
	if err != nil {
		return nil, err
	}
	loadedAt := s.now().UTC()
	log := s.log.WithField("batch_id", batchID)

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return &IngestStats{BatchID: batchID}, fmt.Errorf("%w: %w", ErrStagingWrite, tx.Error)
	}
	if err := reset(tx); err != nil {
		tx.Rollback()
		return &IngestStats{BatchID: batchID}, fmt.Errorf("%w: %w", ErrStagingWrite, err)
	}

	inserted, duplicates, pending := 0, 0, 0
	stats, err := ParseChangeRecords(src, func(line int, rec *model.ChangeRecord) error {
		ok, err := insertIfAbsent(tx, rec, batchID, loadedAt)
		if err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrStagingWrite, line, err)
		}
		if ok {
			inserted++
		} else {
			duplicates++
		}

		pending++
		if pending < batchSize {
			return nil
		}
		if err := tx.Commit().Error; err != nil {
			return fmt.Errorf("%w: commit at line %d: %w", ErrStagingWrite, line, err)
		}
		log.WithField("line", line).Debug("committed staging batch")
		tx = s.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: %w", ErrStagingWrite, tx.Error)
		}
		pending = 0
		return nil
	})
	if err != nil {
		tx.Rollback()
		log.WithError(err).Error("staging aborted")
		return &IngestStats{BatchID: batchID}, err
	}
	if err := tx.Commit().Error; err != nil {
		return &IngestStats{BatchID: batchID}, fmt.Errorf("%w: final commit: %w", ErrStagingWrite, err)
	}

	stats.BatchID = batchID
	stats.Inserted = inserted
	stats.Duplicates = duplicates
	for _, skipped := range stats.Skipped {
		log.WithFields(logrus.Fields{"line": skipped.Line, "reason": skipped.Reason}).Warn("skipped change record")
	}
	log.WithFields(logrus.Fields{
		"read":       stats.Read,
		"inserted":   inserted,
		"duplicates": duplicates,
		"skipped":    stats.SkippedCount(),
	}).Info("staging complete")
	return stats, nil
}

// insertIfAbsent matches the natural key. A NULL time on either side of the
// comparison matches any value.
func insertIfAbsent(tx *gorm.DB, rec *model.ChangeRecord, batchID int64, loadedAt time.Time) (bool, error) {
	q := tx.Model(&model.ChangeRecord{}).
		Where("location_external_id = ? AND emp_external_id = ? AND clock_type = ? AND event_type = ?",
			rec.LocationExternalID, rec.EmployeeExternalID, string(rec.ClockType), rec.EventType)
	q = matchNullable(q, "before_change_clock_time", rec.BeforeChangeClockTime)
	q = matchNullable(q, "after_change_clock_time", rec.AfterChangeClockTime)

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check for existing record: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	stampRecord(rec, batchID, loadedAt)
	if err := tx.Create(rec).Error; err != nil {
		return false, fmt.Errorf("failed to insert change record: %w", err)
	}
	return true, nil
}

func matchNullable(q *gorm.DB, column string, value *time.Time) *gorm.DB {
	if value == nil {
		return q
	}
	return q.Where("("+column+" = ? OR "+column+" IS NULL)", *value)
}
