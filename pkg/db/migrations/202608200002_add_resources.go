package migrations

import (
	"gorm.io/gorm"

	"github.com/go-gormigrate/gormigrate/v2"
)

func addResources() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "202608200002",
		Migrate: func(tx *gorm.DB) error {
			createTableSQL := `
				CREATE TABLE IF NOT EXISTS resources (
					id BIGSERIAL PRIMARY KEY,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMPTZ NULL,

					name VARCHAR(63) NOT NULL,
					resource_type_name VARCHAR(253) NOT NULL,
					resource_type_version VARCHAR(63) NOT NULL,

					spec JSONB NOT NULL,
					spec_hash VARCHAR(64) NOT NULL,

					generation INTEGER NOT NULL DEFAULT 1,
					observed_generation INTEGER NOT NULL DEFAULT 0,

					status VARCHAR(32) NOT NULL DEFAULT 'pending',
					status_message TEXT,
					conditions JSONB NOT NULL DEFAULT '[]'::jsonb,
					outputs JSONB,
					finalizers JSONB NOT NULL DEFAULT '[]'::jsonb,

					retry_count INTEGER NOT NULL DEFAULT 0,
					last_reconcile_time TIMESTAMPTZ NULL,
					next_reconcile_time TIMESTAMPTZ NULL
				);
			`
			if err := tx.Exec(createTableSQL).Error; err != nil {
				return err
			}

			// Names are globally unique among live rows, not merely unique
			// per type. A soft-deleted row releases the name for reuse.
			createUniqueIndexSQL := `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_resources_name
				ON resources(name)
				WHERE deleted_at IS NULL;
			`
			if err := tx.Exec(createUniqueIndexSQL).Error; err != nil {
				return err
			}

			if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_resources_type ON resources(resource_type_name, resource_type_version);").Error; err != nil {
				return err
			}

			if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_resources_deleted_at ON resources(deleted_at);").Error; err != nil {
				return err
			}

			if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_resources_status ON resources(status);").Error; err != nil {
				return err
			}

			// The scheduler scans by due time every tick.
			if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_resources_next_reconcile_time ON resources(next_reconcile_time);").Error; err != nil {
				return err
			}

			if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_resources_conditions ON resources USING GIN(conditions);").Error; err != nil {
				return err
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			for _, index := range []string{
				"idx_resources_conditions",
				"idx_resources_next_reconcile_time",
				"idx_resources_status",
				"idx_resources_deleted_at",
				"idx_resources_type",
				"idx_resources_name",
			} {
				if err := tx.Exec("DROP INDEX IF EXISTS " + index + ";").Error; err != nil {
					return err
				}
			}
			if err := tx.Exec("DROP TABLE IF EXISTS resources;").Error; err != nil {
				return err
			}
			return nil
		},
	}
}
