// Package migrations embeds the goose SQL migrations for the postgres backend.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed goose_sql/*.sql
var embedded embed.FS

// FS returns the migration files at its root, as goose expects.
func FS() fs.FS {
	sub, err := fs.Sub(embedded, "goose_sql")
	if err != nil {
		panic(err) // the directory is embedded above
	}
	return sub
}
