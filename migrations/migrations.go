// Package migrations embeds the Postgres schema.
package migrations

import (
	"embed"

	migrate "github.com/rubenv/sql-migrate"
)

//go:embed *.sql
var Files embed.FS

func Source() migrate.MigrationSource {
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: Files,
		Root:       ".",
	}
}
