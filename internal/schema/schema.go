// Package schema embeds the per-dialect SQL migrations of the forecast database.
package schema

import "embed"

// Migrations holds one directory per database type: postgres, mysql and sqlite.
//
//go:embed migrations
var Migrations embed.FS

// Dir returns the migration directory of a database type.
func Dir(dbType string) string {
	return "migrations/" + dbType
}
