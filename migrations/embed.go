// Package migrations embeds the mirror server's SQL migration files into the
// binary.
//
// Pass FS to database.WithMigrations:
//
//	db, err := database.Open(cfg, database.WithMigrations(migrations.FS, "."))
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root.
//
//go:embed *.sql
var FS embed.FS
