package engine

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bianoble/pinit/internal/ignore"
	"github.com/bianoble/pinit/internal/sandbox"
)

// ApplyGenerated places caller-supplied bytes at rel inside destDir. It
// follows the same ignore, decision and write rules as ApplyDir except that
// no merge is ever offered: a Merge decision is treated as Skip.
func (e *Engine) ApplyGenerated(ctx context.Context, destDir, rel string, content []byte, opts Options, d Decider) (Report, error) {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "" || rel == "." {
		return Report{}, nil
	}
	log := e.Log.WithValues("dest", destDir, "path", rel, "dryRun", opts.DryRun)

	if ignore.AlwaysIgnored(rel) {
		log.V(2).Info("ignored (always)")
		return Report{Ignored: 1}, nil
	}
	if err := prepareDest(destDir, opts.DryRun); err != nil {
		return Report{}, err
	}

	if oracle := e.oracle(ctx, destDir); oracle != nil {
		q := ignore.QueryPath(rel, false)
		ignored, err := oracle.Ignored(ctx, []string{q})
		if err != nil {
			return Report{}, oracleError(err)
		}
		if ignored[q] {
			log.V(2).Info("ignored (git)")
			return Report{Ignored: 1}, nil
		}
	}

	destPath := filepath.Join(destDir, filepath.FromSlash(rel))
	dest, err := os.ReadFile(destPath)
	if errors.Is(err, fs.ErrNotExist) {
		if !opts.DryRun {
			if err := sandbox.Create(destDir, filepath.FromSlash(rel), content); err != nil {
				return Report{}, ioError(destPath, err)
			}
		}
		log.V(2).Info("create")
		return Report{Created: 1}, nil
	}
	if err != nil {
		return Report{}, ioError(destPath, err)
	}

	if bytes.Equal(dest, content) {
		log.V(2).Info("skip (identical)")
		return Report{Skipped: 1}, nil
	}

	action := d.Decide(DecisionContext{
		RelPath:       rel,
		DestPath:      destPath,
		Src:           content,
		Dest:          dest,
		TemplateName:  opts.TemplateName,
		TemplateIndex: opts.TemplateIndex,
	})
	log.V(2).Info("existing file decision (generated)", "action", action.String())

	switch action {
	case Overwrite:
	case Merge:
		log.V(1).Info("merge unavailable for generated file; skipping")
		return Report{Skipped: 1}, nil
	default:
		return Report{Skipped: 1}, nil
	}

	if !opts.DryRun {
		if err := sandbox.Replace(destDir, filepath.FromSlash(rel), content); err != nil {
			return Report{}, ioError(destPath, err)
		}
	}
	return Report{Updated: 1}, nil
}
