package main

import (
	"log"

	"github.com/joho/godotenv"

	"metascreen/adapters/api"
	"metascreen/internal/config"
	"metascreen/internal/container"
)

func main() {
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

	server := api.NewServer(c.Pipeline, c.RunRepo, c.PipelineRequest(), c.Logger)
	if err := server.ListenAndServe(cfg.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
