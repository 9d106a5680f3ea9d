// Package migrations embeds the sqlite schema migrations for session storage.
package migrations

import "embed"

// FS holds the ordered .sql migration files.
//
//go:embed *.sql
var FS embed.FS
