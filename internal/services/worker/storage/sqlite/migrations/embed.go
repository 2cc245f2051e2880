package migrations

import "embed"

// FS contains embedded SQLite migrations for the worker attempt log.
//
//go:embed *.sql
var FS embed.FS
