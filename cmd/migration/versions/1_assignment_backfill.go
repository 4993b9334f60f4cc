package versions

import (
	"log"
	"staffing_platform/backoffice/schema"

	"gorm.io/gorm"
)

// Earlier imports left some applications without an assignment status and with
// mixed-case role values.
func Migration_1_assignment_backfill(txn *gorm.DB) error {
	log.Println("backfilling application assignment fields")

	result := txn.Model(&schema.Application{}).
		Where("assignment_status IS NULL OR assignment_status = ''").
		Update("assignment_status", schema.AssignmentPending)
	if result.Error != nil {
		return result.Error
	}

	for _, column := range []string{"applied_role", "assigned_role"} {
		result := txn.Model(&schema.Application{}).
			Where(column+" IS NOT NULL").
			Update(column, gorm.Expr("lower("+column+")"))
		if result.Error != nil {
			return result.Error
		}
	}

	log.Println("application assignment backfill complete")

	return nil
}
