package license

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bianoble/pinit/internal/config"
)

// Producer renders the configured license into a generated file.
type Producer struct {
	// Now supplies the default copyright year. Defaults to time.Now.
	Now func() time.Time
}

// Args returns the template arguments for l, filling year from the clock
// when the config does not set one.
func (p Producer) Args(l *config.License) map[string]string {
	args := l.TemplateArgs()
	if _, ok := args["year"]; !ok {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		args["year"] = strconv.Itoa(now().Year())
	}
	return args
}

// File renders l and returns the project-relative output path with the
// license bytes.
func (p Producer) File(l *config.License) (string, []byte, error) {
	rel := l.OutputPath()
	if filepath.IsAbs(rel) {
		return "", nil, fmt.Errorf("license output path must be relative: %s", rel)
	}
	text, err := Render(l.SPDX, p.Args(l))
	if err != nil {
		return "", nil, err
	}
	return rel, []byte(text), nil
}
