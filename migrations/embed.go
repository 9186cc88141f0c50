// Package migrations embeds the SQL schema for every supported dialect.
package migrations

import (
	"embed"
	"io/fs"
	"os"
)

// FS holds one subdirectory of ordered *.sql files per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql mysql/*.sql
var FS embed.FS

// Source returns the migrations directory at dir, or the embedded files
// when dir is empty
func Source(dir string) fs.FS {
	if dir == "" {
		return FS
	}
	return os.DirFS(dir)
}
