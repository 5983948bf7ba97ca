package migrations

import (
	"gorm.io/gorm"

	"github.com/go-gormigrate/gormigrate/v2"
)

func addResourceTypes() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "202608200001",
		Migrate: func(tx *gorm.DB) error {
			createTableSQL := `
				CREATE TABLE IF NOT EXISTS resource_types (
					id BIGSERIAL PRIMARY KEY,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

					name VARCHAR(253) NOT NULL,
					version VARCHAR(63) NOT NULL,
					schema JSONB NOT NULL,
					description TEXT,
					status VARCHAR(32) NOT NULL DEFAULT 'active',
					metadata JSONB
				);
			`
			if err := tx.Exec(createTableSQL).Error; err != nil {
				return err
			}

			// A type is addressed by (name, version); both must be unique together.
			createUniqueIndexSQL := `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_resource_types_name_version
				ON resource_types(name, version);
			`
			if err := tx.Exec(createUniqueIndexSQL).Error; err != nil {
				return err
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP INDEX IF EXISTS idx_resource_types_name_version;").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS resource_types;").Error; err != nil {
				return err
			}
			return nil
		},
	}
}
