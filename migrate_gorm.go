// migrate_gorm.go - Run this file to apply GORM migrations without starting the server
// Usage: go run migrate_gorm.go

//go:build ignore

package main

import (
	"context"
	"os"

	"github.com/sahilchouksey/byteboost-api/config"
	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
)

func main() {
	log, err := logger.New(os.Getenv("GO_ENV"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := config.LoadENV(); err != nil {
		log.Error("failed to load environment variables", "error", err)
		os.Exit(1)
	}
	env, err := config.Get()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := database.StartGORM(env, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if err := store.HealthCheck(context.Background()); err != nil {
		log.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	log.Info("all migrations completed", "tables", len(database.Models()))
}
