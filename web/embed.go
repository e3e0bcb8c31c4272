// Package web bundles the assets served when no user static directory
// overrides them.
package web

import "embed"

//go:embed static
var Static embed.FS
