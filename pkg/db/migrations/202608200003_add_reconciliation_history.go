package migrations

import (
	"gorm.io/gorm"

	"github.com/go-gormigrate/gormigrate/v2"
)

func addReconciliationHistory() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "202608200003",
		Migrate: func(tx *gorm.DB) error {
			createTableSQL := `
				CREATE TABLE IF NOT EXISTS reconciliation_history (
					id BIGSERIAL PRIMARY KEY,
					resource_id BIGINT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,

					generation INTEGER NOT NULL,
					success BOOLEAN NOT NULL,
					phase VARCHAR(32) NOT NULL,

					plan_output TEXT,
					apply_output TEXT,
					error_message TEXT,

					resources_created INTEGER NOT NULL DEFAULT 0,
					resources_updated INTEGER NOT NULL DEFAULT 0,
					resources_deleted INTEGER NOT NULL DEFAULT 0,

					duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
					trigger_reason VARCHAR(32) NOT NULL,
					drift_detected BOOLEAN NOT NULL DEFAULT FALSE,
					reconcile_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`
			if err := tx.Exec(createTableSQL).Error; err != nil {
				return err
			}

			// History is read newest-first per resource.
			createIndexSQL := `
				CREATE INDEX IF NOT EXISTS idx_history_resource_time
				ON reconciliation_history(resource_id, reconcile_time DESC);
			`
			if err := tx.Exec(createIndexSQL).Error; err != nil {
				return err
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP INDEX IF EXISTS idx_history_resource_time;").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS reconciliation_history;").Error; err != nil {
				return err
			}
			return nil
		},
	}
}
