package initialize

import (
	"fmt"

	"server/config"
	"server/internal/logger"
	. "server/internal/models"

	"gorm.io/gorm"
)

// InitializeTables verifies the migrated schema can hold every model the
// server uses. Organizations and admins are provisioned separately through
// cmd/createadmin.
func InitializeTables(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("InitializeTables")
	log.Info("Verifying schema")

	models := []any{
		&Organization{}, &AdminUser{}, &Election{}, &Voter{}, &VoterActivity{},
	}
	for _, model := range models {
		if !db.Migrator().HasTable(model) {
			return fmt.Errorf("schema is missing a table for %T; run migrations first", model)
		}
	}

	log.Info("Schema verification complete")
	return nil
}
