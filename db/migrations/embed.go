// Package migrations embeds the schema for the allowlist and operation history.
package migrations

import "embed"

// Files holds the numbered up/down migrations applied at startup.
//
//go:embed *.sql
var Files embed.FS
