package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"metascreen/internal/config"
	"metascreen/internal/container"
)

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer c.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := c.Pipeline.Run(ctx, c.PipelineRequest())
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}

	run := result.Run
	c.Logger.Info("Run %s: %d/%d features significant at alpha %.4g",
		run.RunID, run.SignificantCount, run.TotalFeatures, run.Options.Alpha)
	if result.ReportPath != "" {
		c.Logger.Info("Report: %s", result.ReportPath)
	}
}
