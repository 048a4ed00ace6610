package migrations

import (
	"embed"
	"io/fs"

	"github.com/uptrace/bun/migrate"
)

//go:embed sql/*.sql
var sqlMigrations embed.FS

// Migrations creates the quiz catalog mirror and the attempt archive.
var Migrations = migrate.NewMigrations()

func init() {
	files, err := fs.Sub(sqlMigrations, "sql")
	if err != nil {
		panic(err)
	}
	if err := Migrations.Discover(files); err != nil {
		panic(err)
	}
}
