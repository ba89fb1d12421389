package main

import (
	"flag"
	"os"

	"github.com/sahilchouksey/byteboost-api/config"
	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
)

func main() {
	defaults := database.DefaultSeedConfig()
	adminEmail := flag.String("admin-email", envOr("ADMIN_EMAIL", defaults.AdminEmail), "email of the seeded admin")
	instructorEmail := flag.String("instructor-email", envOr("INSTRUCTOR_EMAIL", defaults.InstructorEmail), "email of the seeded instructor")
	migrate := flag.Bool("migrate", true, "run migrations before seeding")
	flag.Parse()

	log, err := logger.New(os.Getenv("GO_ENV"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Load environment variables
	if err := config.LoadENV(); err != nil {
		log.Warn(".env file not loaded, using system environment variables", "error", err)
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

	if *migrate {
		if err := store.Init(); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	cfg := defaults
	cfg.AdminEmail = *adminEmail
	cfg.InstructorEmail = *instructorEmail

	if err := database.NewSeeder(store.GetDB(), cfg, log).SeedAll(); err != nil {
		log.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
