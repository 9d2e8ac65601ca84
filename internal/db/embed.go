package db

import "embed"

// EmbedMigrations holds the schema migrations compiled into the binary so
// the bot and tallyctl can migrate any store they are pointed at.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
