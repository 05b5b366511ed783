// Package migrations embeds the goose SQL migrations applied at startup.
package migrations

import "embed"

// Migrations holds the SQL migration files.
//
//go:embed *.sql
var Migrations embed.FS
