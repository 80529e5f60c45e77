package migrations

import (
	"github.com/frequencyandform/outreach-pipeline/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createSendRecordsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_send_records",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SendRecordModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_send_records_dedup_key ON send_records (dedup_key, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_send_records_recipient ON send_records (recipient, category, created_at DESC)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SendRecordModel{})
		},
	}
}
