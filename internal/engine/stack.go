package engine

import (
	"context"
	"fmt"
	"path/filepath"
)

// Layer is one template directory in a stack.
type Layer struct {
	Name string
	Dir  string

	// Include limits the layer to matching files.
	Include []string

	// DestPrefix places the layer below a subdirectory of the destination.
	DestPrefix string
}

// ApplyStack applies layers in order into destDir and sums their reports.
// Each layer sees the files written by the layers before it. The first
// failing layer stops the stack; the returned report covers the layers that
// completed plus whatever the failing layer wrote.
func (e *Engine) ApplyStack(ctx context.Context, layers []Layer, destDir string, opts Options, d Decider) (Report, error) {
	var total Report
	for i, l := range layers {
		o := opts
		o.TemplateName = l.Name
		o.TemplateIndex = i
		o.Include = l.Include

		dest := destDir
		if l.DestPrefix != "" {
			if !filepath.IsLocal(l.DestPrefix) {
				return total, fmt.Errorf("layer %s: dest_prefix must be a relative path inside the destination, got %s", l.Name, l.DestPrefix)
			}
			dest = filepath.Join(destDir, l.DestPrefix)
		}

		e.Log.Info("apply template dir", "template", l.Name, "dir", l.Dir, "dest", dest)
		r, err := e.ApplyDir(ctx, l.Dir, dest, o, d)
		total.Add(r)
		if err != nil {
			return total, fmt.Errorf("applying %s: %w", l.Name, err)
		}
	}
	return total, nil
}
