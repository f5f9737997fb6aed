// Package migrations embeds the SQL schema migrations for vchat.db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
