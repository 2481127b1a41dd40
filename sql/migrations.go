// Package sql embeds the goose database migrations.
package sql

import "embed"

//go:embed *.sql
var FS embed.FS
