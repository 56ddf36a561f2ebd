package migrations

import "embed"

// FS contains embedded SQLite migrations for card storage.
//
//go:embed *.sql
var FS embed.FS
