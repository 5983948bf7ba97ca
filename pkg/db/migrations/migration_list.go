package migrations

// Migrations should NEVER use types from other packages. Types can change
// and then migrations run on a _new_ database will fail or behave unexpectedly.
// Instead of importing types, always re-create the type in the migration.

import (
	"github.com/go-gormigrate/gormigrate/v2"
)

// MigrationList is applied in order by gormigrate. Append only; never reorder
// or edit a migration that has shipped.
var MigrationList = []*gormigrate.Migration{
	addResourceTypes(),
	addResources(),
	addReconciliationHistory(),
	addAdmissionWebhooks(),
	addLocks(),
}
