// Package migrations holds the registry schema as numbered up/down SQL files.
package migrations

import "embed"

// FS is read by the store at open time; files are applied in version order.
//
//go:embed *.sql
var FS embed.FS
