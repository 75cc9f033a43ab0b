// Package mysql embeds the SQL migrations for the reviewhub schema.
package mysql

import "embed"

// FS holds the migrations, applied in file-name order.
//
//go:embed *.sql
var FS embed.FS
