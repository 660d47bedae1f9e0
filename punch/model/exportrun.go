package model

import "time"

const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

type ExportRun struct {
	ID           string     `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	BatchID      int64      `gorm:"column:batch_id;index" json:"batchId"`
	Source       string     `gorm:"column:source;type:varchar(512)" json:"source"`
	Status       string     `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Error        string     `gorm:"column:error;type:text" json:"error,omitempty"`
	Inserted     int        `gorm:"column:inserted" json:"inserted"`
	Duplicates   int        `gorm:"column:duplicates" json:"duplicates"`
	Skipped      int        `gorm:"column:skipped" json:"skipped"`
	Correlated   int        `gorm:"column:correlated" json:"correlated"`
	Unresolved   int        `gorm:"column:unresolved" json:"unresolved"`
	FailedGroups int        `gorm:"column:failed_groups" json:"failedGroups"`
	StartedAt    time.Time  `gorm:"column:started_at;not null" json:"startedAt"`
	FinishedAt   *time.Time `gorm:"column:finished_at" json:"finishedAt"`

	Documents []ExportDocument `gorm:"foreignKey:RunID;references:ID" json:"documents,omitempty"`
}

func (ExportRun) TableName() string {
	return "punch_export_runs"
}

type ExportDocument struct {
	ID           string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	RunID        string    `gorm:"column:run_id;type:varchar(36);index;not null" json:"runId"`
	WarehouseID  string    `gorm:"column:warehouse_id;type:varchar(32);not null" json:"warehouseId"`
	FileName     string    `gorm:"column:file_name;type:varchar(255)" json:"fileName"`
	Transactions int       `gorm:"column:transactions" json:"transactions"`
	Delivered    bool      `gorm:"column:delivered" json:"delivered"`
	Error        string    `gorm:"column:error;type:text" json:"error,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (ExportDocument) TableName() string {
	return "punch_export_documents"
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{&ChangeRecord{}, &WarehouseLocation{}, &ExportRun{}, &ExportDocument{}}
}
