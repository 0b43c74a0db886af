// Package db хранит SQL-миграции схемы в виде пар NNNNNN_описание.up.sql / .down.sql.
package db

import "embed"

// MigrationsDir — путь к миграциям внутри Migrations
const MigrationsDir = "migrations"

//go:embed migrations/*.sql
var Migrations embed.FS
