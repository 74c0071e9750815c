// Package migrations holds the bun migration set for development
// databases. Production deployments run against an existing OpenDCS
// schema owned by the database installation; these migrations only
// bootstrap the tables the API itself reads in local and test setups.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registered migration set, applied via `odcsapi db`.
var Migrations = migrate.NewMigrations()
