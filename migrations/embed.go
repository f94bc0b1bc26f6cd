// Package migrations embeds the SQL schema. The server applies the *.up.sql
// files on start; integration tests apply them to their container.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
