package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"punchexport.com/punchexport/punch/core"
	"punchexport.com/punchexport/punch/model"
	web "punchexport.com/punchexport/web/common"
)

func (ep *Endpoint) ListLocations(c *gin.Context) {
	var locations []model.WarehouseLocation
	if err := ep.db.WithContext(c.Request.Context()).Order("location_id").Find(&locations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, web.NewSearchResponse(locations, int64(len(locations))))
}

// ImportLocations upserts the uploaded .xlsx workbook.
func (ep *Endpoint) ImportLocations(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Field 'file' is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
		return
	}
	defer file.Close()

	n, err := core.ImportLocations(c.Request.Context(), ep.db, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(gin.H{"imported": n}))
}
