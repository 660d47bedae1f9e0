package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"punchexport.com/punchexport/punch/model"
	web "punchexport.com/punchexport/web/common"
)

type StagingSearchParams struct {
	Employees   []int              `json:"employees"`
	Locations   []int              `json:"locations"`
	ClockTypes  []string           `json:"clockTypes"`
	EventTypes  []string           `json:"eventTypes" binding:"dive,oneof=Create Delete ApproveReject"`
	From        *web.LocalDateTime `json:"from"`
	To          *web.LocalDateTime `json:"to"`
	BatchID     *int64             `json:"batchId"`
	CurrentOnly bool               `json:"currentOnly"`
}

// SearchStaging filters staged change records. From and To apply to the
// effective time: the after time, else the before time.
func (ep *Endpoint) SearchStaging(c *gin.Context) {
	var params StagingSearchParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}
	limit, offset := paging(c, 1000)

	q := ep.db.WithContext(c.Request.Context()).Model(&model.ChangeRecord{})
	if len(params.Employees) > 0 {
		q = q.Where("emp_external_id IN ?", params.Employees)
	}
	if len(params.Locations) > 0 {
		q = q.Where("location_external_id IN ?", params.Locations)
	}
	if len(params.ClockTypes) > 0 {
		clockTypes := make([]model.ClockType, len(params.ClockTypes))
		for i, ct := range params.ClockTypes {
			clockTypes[i] = model.NormalizeClockType(ct)
		}
		q = q.Where("clock_type IN ?", clockTypes)
	}
	if len(params.EventTypes) > 0 {
		q = q.Where("event_type IN ?", params.EventTypes)
	}
	if params.From != nil && !params.From.IsZero() {
		q = q.Where("COALESCE(after_change_clock_time, before_change_clock_time) >= ?", params.From.Time)
	}
	if params.To != nil && !params.To.IsZero() {
		q = q.Where("COALESCE(after_change_clock_time, before_change_clock_time) < ?", params.To.Time)
	}
	if params.BatchID != nil {
		q = q.Where("insert_batch_id = ?", *params.BatchID)
	}
	if params.CurrentOnly {
		q = q.Where("is_current = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	var records []model.ChangeRecord
	if err := q.Order("emp_external_id, id").Limit(limit).Offset(offset).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, web.NewSearchResponse(records, total).Page(limit, offset))
}
