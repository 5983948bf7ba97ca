package migrations

import (
	"gorm.io/gorm"

	"github.com/go-gormigrate/gormigrate/v2"
)

func addLocks() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "202608200005",
		Migrate: func(tx *gorm.DB) error {
			// Lease table reserved for multi-replica deployments. The
			// single-node scheduler relies on FOR UPDATE SKIP LOCKED and
			// never touches it.
			createTableSQL := `
				CREATE TABLE IF NOT EXISTS locks (
					resource_key VARCHAR(255) PRIMARY KEY,
					holder_id VARCHAR(255) NOT NULL,
					acquired_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					lease_duration_seconds INTEGER NOT NULL DEFAULT 60
				);
			`
			return tx.Exec(createTableSQL).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS locks;").Error
		},
	}
}
