package appfs

import "embed"

// FS holds the SQL migrations and email templates shipped inside the binaries.
//go:embed migrations assets
var FS embed.FS
