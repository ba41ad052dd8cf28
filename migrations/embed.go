// Package migrations embeds the SQL schema files so the binary can install
// them regardless of its working directory.
package migrations

import "embed"

// FS holds postgres/*.sql and clickhouse/*.sql.
//
//go:embed postgres/*.sql clickhouse/*.sql
var FS embed.FS
