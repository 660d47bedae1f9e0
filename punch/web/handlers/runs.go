package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"punchexport.com/punchexport/punch/model"
	web "punchexport.com/punchexport/web/common"
)

const maxUploadSize = 50 << 20

func (ep *Endpoint) ListRuns(c *gin.Context) {
	limit, offset := paging(c, 50)
	db := ep.db.WithContext(c.Request.Context())

	var total int64
	if err := db.Model(&model.ExportRun{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	var runs []model.ExportRun
	if err := db.Order("started_at DESC").Limit(limit).Offset(offset).Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, web.NewSearchResponse(runs, total).Page(limit, offset))
}

func (ep *Endpoint) GetRun(c *gin.Context) {
	var run model.ExportRun
	err := ep.db.WithContext(c.Request.Context()).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("warehouse_id") }).
		First(&run, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, web.NewErrorResponse("Run not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(run))
}

// CreateRun stages the uploaded "file" and exports it.
func (ep *Endpoint) CreateRun(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Field 'file' is required"))
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".txt" {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(fmt.Sprintf("unsupported file type %q", ext)))
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
		return
	}
	defer file.Close()

	ep.runMu.Lock()
	defer ep.runMu.Unlock()

	report, err := ep.runner.Run(c.Request.Context(), "upload:"+header.Filename, file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(report))
}
