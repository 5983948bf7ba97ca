package migrations

import (
	"gorm.io/gorm"

	"github.com/go-gormigrate/gormigrate/v2"
)

func addAdmissionWebhooks() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "202608200004",
		Migrate: func(tx *gorm.DB) error {
			createTableSQL := `
				CREATE TABLE IF NOT EXISTS admission_webhooks (
					id BIGSERIAL PRIMARY KEY,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

					name VARCHAR(253) NOT NULL,

					-- NULL matches every resource type
					resource_type_name VARCHAR(253) NULL,
					resource_type_version VARCHAR(63) NULL,

					webhook_url VARCHAR(2048) NOT NULL,
					webhook_type VARCHAR(16) NOT NULL,
					operations JSONB NOT NULL DEFAULT '["CREATE","UPDATE","DELETE"]'::jsonb,
					timeout_seconds INTEGER NOT NULL DEFAULT 10,
					failure_policy VARCHAR(16) NOT NULL DEFAULT 'Fail',
					ordering INTEGER NOT NULL DEFAULT 0
				);
			`
			if err := tx.Exec(createTableSQL).Error; err != nil {
				return err
			}

			if err := tx.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_webhooks_name ON admission_webhooks(name);").Error; err != nil {
				return err
			}

			// Chains execute in (ordering, id) order per webhook type.
			createOrderingIndexSQL := `
				CREATE INDEX IF NOT EXISTS idx_webhooks_type_ordering
				ON admission_webhooks(webhook_type, ordering, id);
			`
			if err := tx.Exec(createOrderingIndexSQL).Error; err != nil {
				return err
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP INDEX IF EXISTS idx_webhooks_type_ordering;").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP INDEX IF EXISTS idx_webhooks_name;").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS admission_webhooks;").Error; err != nil {
				return err
			}
			return nil
		},
	}
}
