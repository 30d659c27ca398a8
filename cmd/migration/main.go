package main

import (
	"os"

	"server/cmd/migration/initialize"
	"server/cmd/migration/seed"
	"server/config"
	"server/internal/database"
	"server/internal/logger"
)

func main() {
	log := logger.New("migration").Function("main")

	config, err := config.InitConfig()
	if err != nil {
		log.Er("failed to initialize config", err)
		os.Exit(1)
	}
	logger.Init(config.Environment)

	db, err := database.New(config)
	if err != nil {
		log.Er("failed to open database", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	applied, err := db.Migrate()
	if err != nil {
		log.Er("migration failed", err)
		os.Exit(1)
	}
	log.Info("Migrations applied", "count", applied)

	// Cached rows serialized under the old schema must not outlive it.
	if applied > 0 {
		if err := db.FlushAllCaches(); err != nil {
			log.Er("failed to flush caches after migration", err)
			os.Exit(1)
		}
	}

	if err := initialize.InitializeTables(db.SQL, config, log); err != nil {
		log.Er("initialization failed", err)
		os.Exit(1)
	}

	if config.IsDevelopment() {
		if err := seed.Seed(db.SQL, config, log); err != nil {
			log.Er("seeding failed", err)
			os.Exit(1)
		}
	}
}
