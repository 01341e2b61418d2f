package cache

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/mitchellh/go-homedir"
	"github.com/zeebo/blake3"
)

// Cache stores git checkouts of template repositories. Each repository and
// ref pair gets its own directory keyed by a BLAKE3 hash.
type Cache struct {
	dir string
}

// New creates a Cache at the given directory.
// The directory is created if it does not exist.
func New(dir string) (*Cache, error) {
	reposDir := filepath.Join(dir, "repos")
	if err := os.MkdirAll(reposDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", reposDir, err)
	}
	return &Cache{dir: dir}, nil
}

// DefaultDir returns the default cache directory.
// Uses XDG_CACHE_HOME if set, otherwise ~/.cache/pinit.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pinit"), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("could not determine a cache directory: %w", err)
	}
	return filepath.Join(home, ".cache", "pinit"), nil
}

// Key returns the cache key for a repository URL and ref.
func Key(repo, ref string) string {
	h := blake3.New()
	_, _ = h.WriteString(repo)
	_, _ = h.WriteString("\n")
	_, _ = h.WriteString(ref)
	return hex.EncodeToString(h.Sum(nil))
}

// RepoDir returns where the checkout of repo at ref lives.
func (c *Cache) RepoDir(repo, ref string) string {
	return filepath.Join(c.dir, "repos", Key(repo, ref), "repo")
}

// Prepare creates the parent of the checkout directory and reports whether
// a checkout already exists.
func (c *Cache) Prepare(repo, ref string) (dir string, exists bool, err error) {
	dir = c.RepoDir(repo, ref)
	if _, err := os.Stat(dir); err == nil {
		return dir, true, nil
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return dir, false, fmt.Errorf("creating cache entry for %s: %w", repo, err)
	}
	return dir, false, nil
}

// Entries lists the keys of every cached checkout.
func (c *Cache) Entries() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.dir, "repos"))
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Size returns the total size of the cache in bytes.
func (c *Cache) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// Path returns the cache directory path.
func (c *Cache) Path() string {
	return c.dir
}

// Clean removes every cached checkout.
func (c *Cache) Clean() error {
	reposDir := filepath.Join(c.dir, "repos")
	if err := os.RemoveAll(reposDir); err != nil {
		return fmt.Errorf("cleaning cache: %w", err)
	}
	return os.MkdirAll(reposDir, 0755)
}
