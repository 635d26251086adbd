// Package db embeds the Postgres schema migrations.
package db

import "embed"

// Migrations holds the *.up.sql and *.down.sql files, applied in name order.
//
//go:embed migrations/*.sql
var Migrations embed.FS
