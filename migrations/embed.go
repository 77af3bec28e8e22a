// Package migrations embeds the SQL schema for cmd/migrate and container tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
