package versions

import (
	"log"
	"staffing_platform/backoffice/schema"

	"gorm.io/gorm"
)

func Migration_0_initial_schema(txn *gorm.DB) error {
	log.Println("creating initial backoffice schema")

	if err := txn.Migrator().AutoMigrate(schema.AllModels()...); err != nil {
		return err
	}

	log.Println("initial backoffice schema created")

	return nil
}

func Rollback_0_initial_schema(txn *gorm.DB) error {
	return txn.Migrator().DropTable(schema.AllModels()...)
}
