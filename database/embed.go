package database

import "embed"

// EmbeddedMigrations, migrations/*.sql dosyalarını binary'ye gömer.
// New'e fs.Sub(EmbeddedMigrations, "migrations") olarak verilir.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS
