package main

import (
	"log"
	"os"

	"gorm.io/gen"

	"punchexport.com/punchexport/core"
	"punchexport.com/punchexport/punch/model"
)

// Generates typed query helpers for the staging and run log models into
// punch/query. Run from this directory with PUNCH_DSN set.
func main() {
	g := gen.NewGenerator(gen.Config{
		OutPath: "../../../punch/query",
		Mode:    gen.WithoutContext | gen.WithDefaultQuery | gen.WithQueryInterface, // generate mode
	})

	dsn := os.Getenv("PUNCH_DSN")
	if dsn == "" {
		dsn = "sqlite://punch.db"
	}
	gormdb, err := core.ConnectDB(dsn, core.LogLevelError)
	if err != nil {
		log.Fatal(err)
	}
	g.UseDB(gormdb)

	g.ApplyBasic(model.All()...)

	// Generate the code
	g.Execute()
}
