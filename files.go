package auth

import (
	"embed"
)

// MigrationsDir is the path of the embedded migration scripts inside the
// filesystem returned by GetMigrationsFS.
const MigrationsDir = "data/sql/migrations"

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the schema migrations so the host application can
// register them with its own migrator.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
