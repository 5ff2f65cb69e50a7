package migration

import (
	"Label-Scanner-Backend/entities"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")
	}

	if err := db.AutoMigrate(&entities.LabelScan{}); err != nil {
		log.Errorf("Error migrating label scan database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Product{}); err != nil {
		log.Errorf("Error migrating product database: %v", err)
		return err
	}

	log.Info("Database migration complete")
	return nil
}
