// Package migrations embeds the SQLite schema into the binary so the
// server can migrate without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/sensorhub-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
