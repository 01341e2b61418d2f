package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const configDirName = "pinit"

// fileNames are tried in order inside the config directory.
var fileNames = []string{"pinit.toml", "pinit.yaml", "pinit.yml", "pinit.jsonc", "pinit.json"}

// ErrNotFound is returned by Find when no config file exists.
var ErrNotFound = errors.New("no config file found")

// Dir returns the directory holding the user config:
// $XDG_CONFIG_HOME/pinit when set, otherwise ~/.config/pinit.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, configDirName), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".config", configDirName), nil
}

// CandidatePaths returns the config paths checked by Find, in order.
func CandidatePaths() []string {
	dir, err := Dir()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(fileNames))
	for _, name := range fileNames {
		out = append(out, filepath.Join(dir, name))
	}
	return out
}

// DefaultPath is where a new config is written.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileNames[0]), nil
}

// Find loads override when set, otherwise the first candidate path that is a
// regular file. It returns ErrNotFound when nothing exists.
func Find(override string) (*Config, error) {
	if override != "" {
		return Load(override)
	}
	for _, p := range CandidatePaths() {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return Load(p)
	}
	return nil, ErrNotFound
}
