// Package db holds the SQL schema migrations, compiled into the binary.
package db

import "embed"

// Migrations contains the goose files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of the goose files inside Migrations.
const MigrationsDir = "migrations"
