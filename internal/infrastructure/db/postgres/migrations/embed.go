package migrations

import "embed"

// FS contains the embedded PostgreSQL migrations for the identity directory.
//
//go:embed *.sql
var FS embed.FS
