package source

import (
	"context"
	"fmt"
	"os"

	"github.com/bianoble/pinit/internal/config"
)

// LocalResolver serves sources that point at a directory on disk.
type LocalResolver struct{}

func (LocalResolver) Root(_ context.Context, src config.Source) (string, error) {
	if src.Path == "" {
		return "", fmt.Errorf("source '%s' is missing 'path'", src.Name)
	}
	info, err := os.Stat(src.Path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src.Path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("source '%s' path is not a directory: %s", src.Name, src.Path)
	}
	return src.Path, nil
}
