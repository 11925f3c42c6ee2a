// Package migrations holds the schema migrations for each supported database,
// embedded so the binary can migrate without a migrations directory on disk.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

