package migrations

import (
	"github.com/example/departure-notifier/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createNotificationRecordsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_notification_records",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationRecordModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_notification_records_key ON notification_records (flight_id, recipient)`,
				`CREATE INDEX IF NOT EXISTS idx_notification_records_status ON notification_records (status, updated_at)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationRecordModel{})
		},
	}
}
