// Package migrations carries the ledger schema so binaries can migrate
// without a checkout of this directory.
package migrations

import "embed"

// Files holds every numbered .up.sql and .down.sql file
//
//go:embed *.sql
var Files embed.FS
