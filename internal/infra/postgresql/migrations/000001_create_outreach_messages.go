package migrations

import (
	"github.com/frequencyandform/outreach-pipeline/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createOutreachMessagesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_outreach_messages",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.MessageModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_outreach_messages_due ON outreach_messages (status, scheduled_for, priority DESC, created_at)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_outreach_messages_dedup_key ON outreach_messages (dedup_key)`,
				`CREATE INDEX IF NOT EXISTS idx_outreach_messages_lease ON outreach_messages (lease_expires_at) WHERE status = 'PROCESSING'`,
				`CREATE INDEX IF NOT EXISTS idx_outreach_messages_recipient ON outreach_messages (recipient, category)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.MessageModel{})
		},
	}
}
