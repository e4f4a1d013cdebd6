package static

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var StaticFS embed.FS

// FS returns the embedded assets rooted at the static directory.
func FS() fs.FS {
	sub, err := fs.Sub(StaticFS, "static")
	if err != nil {
		// static/ is embedded at build time, so this cannot fail.
		panic(err)
	}
	return sub
}
