// Package web embeds the single-page frontend served at the root path.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// Static returns the frontend filesystem rooted at the asset directory.
func Static() (fs.FS, error) {
	return fs.Sub(static, "static")
}
