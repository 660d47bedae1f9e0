package handlers

import (
	"context"
	"io"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"punchexport.com/punchexport/punch/core"
)

// Runner runs the export pipeline for one uploaded file.
type Runner interface {
	Run(ctx context.Context, source string, src io.Reader) (*core.RunReport, error)
}

type Endpoint struct {
	db     *gorm.DB
	runner Runner
	// runs share the staging tables and batch ids, so only one runs at a time
	runMu sync.Mutex
}

func Register(r *gin.RouterGroup, db *gorm.DB, runner Runner) {
	ep := &Endpoint{db: db, runner: runner}

	r.GET("/runs", ep.ListRuns)
	r.GET("/runs/:id", ep.GetRun)
	r.POST("/runs", ep.CreateRun)

	r.POST("/staging/search", ep.SearchStaging)

	r.GET("/locations", ep.ListLocations)
	r.POST("/locations/import", ep.ImportLocations)
}

func paging(c *gin.Context, defaultLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if val, err := strconv.Atoi(c.Query("limit")); err == nil && val > 0 {
		limit = val
	}
	if val, err := strconv.Atoi(c.Query("offset")); err == nil && val >= 0 {
		offset = val
	}
	return limit, offset
}
