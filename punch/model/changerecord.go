package model

import "time"

// ChangeRecord is a staged time clock change. Rows are append-only; a new
// ingestion run flips IsCurrent off for everything before inserting.
type ChangeRecord struct {
	ID                 int64      `gorm:"primaryKey;column:id" json:"id"`
	TimeClockChangeID  string     `gorm:"column:time_clock_change_id;type:varchar(64)" json:"changeId"`
	LocationID         string     `gorm:"column:location_id;type:varchar(64)" json:"locationId"`
	LocationExternalID int        `gorm:"column:location_external_id;not null;index:idx_change_natural_key,priority:1" json:"locationExternalId"`
	LastModifiedDt     *time.Time `gorm:"column:last_modified_dt" json:"lastModifiedAt"`
	LastModifiedBy     string     `gorm:"column:last_modified_by;type:varchar(64)" json:"lastModifiedBy"`
	LastModifiedByExt  string     `gorm:"column:last_modified_by_external_id;type:varchar(64)" json:"lastModifiedByExternalId"`
	EmployeeID         string     `gorm:"column:emp_id;type:varchar(64)" json:"employeeId"`
	EmployeeExternalID int        `gorm:"column:emp_external_id;not null;index:idx_change_natural_key,priority:2;index:idx_change_employee" json:"employeeExternalId"`
	TimeClockID        string     `gorm:"column:time_clock_id;type:varchar(64)" json:"timeClockId"`
	ClockType          ClockType  `gorm:"column:clock_type;type:varchar(32);index:idx_change_natural_key,priority:3" json:"clockType"`

	BeforeChangeClockTime       *time.Time `gorm:"column:before_change_clock_time" json:"beforeChangeTime"`
	BeforeChangeClockLocationID string     `gorm:"column:before_change_clock_location_id;type:varchar(64)" json:"-"`
	BeforeChangeClockLocation   string     `gorm:"column:before_change_clock_location;type:varchar(255)" json:"-"`
	BeforeChangeWorkRoleID      string     `gorm:"column:before_change_work_role_id;type:varchar(64)" json:"-"`
	BeforeChangeWorkRole        string     `gorm:"column:before_change_work_role;type:varchar(255)" json:"-"`
	BeforeChangeClockSource     string     `gorm:"column:before_change_clock_source;type:varchar(64)" json:"-"`
	BeforeChangeClockNote       string     `gorm:"column:before_change_clock_note;type:varchar(1024)" json:"-"`

	AfterChangeClockTime       *time.Time `gorm:"column:after_change_clock_time" json:"afterChangeTime"`
	AfterChangeClockLocationID string     `gorm:"column:after_change_clock_location_id;type:varchar(64)" json:"-"`
	AfterChangeClockLocation   string     `gorm:"column:after_change_clock_location;type:varchar(255)" json:"-"`
	AfterChangeWorkRoleID      string     `gorm:"column:after_change_work_role_id;type:varchar(64)" json:"-"`
	AfterChangeWorkRole        string     `gorm:"column:after_change_work_role;type:varchar(255)" json:"afterChangeWorkRole,omitempty"`
	AfterChangeClockSource     string     `gorm:"column:after_change_clock_source;type:varchar(64)" json:"-"`
	AfterChangeClockNote       string     `gorm:"column:after_change_clock_note;type:varchar(1024)" json:"-"`

	EventType     EventType `gorm:"column:event_type;type:varchar(32);index:idx_change_natural_key,priority:4" json:"eventType"`
	IsCurrent     bool      `gorm:"column:is_current;not null;index" json:"isCurrent"`
	InsertBatchID int64     `gorm:"column:insert_batch_id;not null;index" json:"batchId"`
	InsertLoadDt  time.Time `gorm:"column:insert_load_dt;not null" json:"loadedAt"`
}

func (ChangeRecord) TableName() string {
	return "time_clock_change_fact"
}

// EffectiveTime is the after-change time, or the before-change time when the
// record has no after value (deletions).
func (r *ChangeRecord) EffectiveTime() *time.Time {
	if r.AfterChangeClockTime != nil {
		return r.AfterChangeClockTime
	}
	return r.BeforeChangeClockTime
}
