// Package migrations embeds the records API schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
