package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"punchexport.com/punchexport/punch/app"
	"punchexport.com/punchexport/punch/web/handlers"
	"punchexport.com/punchexport/security"
	"punchexport.com/punchexport/web/middlewares"
)

func main() {
	ctx := context.Background()
	configPath := os.Getenv("PUNCH_CONFIG")
	if configPath == "" {
		configPath = "punch.yaml"
	}
	a, err := app.Setup(ctx, configPath)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	pipeline, err := a.Pipeline(ctx)
	if err != nil {
		log.Fatal(err)
	}

	jwtSecret, err := security.DecodeSecret(os.Getenv("PUNCH_SIGNING_SECRET"))
	if err != nil {
		log.Fatal("Failed to decode JWT secret:", err)
	}

	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	protected := r.Group("/api/punch/v1.0")
	protected.Use(middlewares.Authentication(jwtSecret))
	handlers.Register(protected, a.DB, pipeline)

	addr := "0.0.0.0:8090"
	if port := os.Getenv("PORT"); port != "" {
		addr = "0.0.0.0:" + port
	}
	if err := r.Run(addr); err != nil {
		log.Fatal(err)
	}
}
