// Package ignore decides which template paths are kept out of a destination.
package ignore

import (
	"context"
	"path"
	"path/filepath"
	"strings"
)

// Oracle reports which destination-relative paths the destination's own
// ignore rules exclude. It is queried once per directory level with the
// whole batch of entries; directory paths carry a trailing slash.
type Oracle interface {
	Ignored(ctx context.Context, paths []string) (map[string]bool, error)
}

// AlwaysIgnored reports whether rel is excluded without consulting any oracle:
// a .DS_Store file at any depth, or anything whose first component is .git.
func AlwaysIgnored(rel string) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return false
	}
	if path.Base(rel) == ".DS_Store" {
		return true
	}
	first, _, _ := strings.Cut(rel, "/")
	return first == ".git"
}

// QueryPath formats rel the way oracle queries expect it: forward slashes,
// and a trailing slash for directories.
func QueryPath(rel string, isDir bool) string {
	q := strings.TrimPrefix(filepath.ToSlash(rel), "./")
	if isDir && !strings.HasSuffix(q, "/") {
		q += "/"
	}
	return q
}
