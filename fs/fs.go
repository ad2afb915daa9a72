// Package appfs exposes embedded app assets (database migrations).
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
