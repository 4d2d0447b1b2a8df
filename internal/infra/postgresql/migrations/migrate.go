package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate applies the notifier's own schema. The tracker's flights,
// orders, and tickets tables are owned elsewhere and never touched
// here.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createNotificationRecordsTable(),
	})

	return m.Migrate()
}
