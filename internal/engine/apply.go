package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/moby/patternmatcher"

	"github.com/bianoble/pinit/internal/ignore"
	"github.com/bianoble/pinit/internal/merge"
	"github.com/bianoble/pinit/internal/sandbox"
)

// Engine applies template directories and generated files into a
// destination directory.
type Engine struct {
	Merger *merge.Registry
	Log    logr.Logger

	// DetectOracle returns the ignore oracle for a destination root, or nil
	// when the destination has no ignore rules of its own.
	DetectOracle func(ctx context.Context, destDir string) ignore.Oracle
}

// New returns an Engine that merges with the built-in strategies and honours
// the destination's git ignore rules.
func New(log logr.Logger) *Engine {
	return &Engine{
		Merger:       &merge.Registry{Log: log},
		Log:          log,
		DetectOracle: ignore.Detect,
	}
}

type opKind int

const (
	opCreate opKind = iota
	opReplace
)

// fileOp is one planned write, relative to the destination root.
type fileOp struct {
	rel     string
	content []byte
	kind    opKind
}

// plan is the outcome of walking a template directory. Nothing has been
// written when a plan is complete.
type plan struct {
	ops    []fileOp
	report Report
}

// ApplyDir applies templateDir into destDir. The whole template tree is
// read, filtered and decided before the first write, so any failure up to
// that point leaves destDir as it was.
func (e *Engine) ApplyDir(ctx context.Context, templateDir, destDir string, opts Options, d Decider) (Report, error) {
	log := e.Log.WithValues("template", templateDir, "dest", destDir, "dryRun", opts.DryRun)

	info, err := os.Lstat(templateDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Report{}, &ApplyError{Kind: TemplateDirNotFound, Path: templateDir, Err: err}
		}
		return Report{}, ioError(templateDir, err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return Report{}, &ApplyError{Kind: SymlinkNotSupported, Path: templateDir}
	}
	if !info.IsDir() {
		return Report{}, &ApplyError{Kind: TemplateDirNotDir, Path: templateDir}
	}
	if err := prepareDest(destDir, opts.DryRun); err != nil {
		return Report{}, err
	}

	w := &walker{
		engine:  e,
		log:     log,
		opts:    opts,
		decider: d,
		destDir: destDir,
		oracle:  e.oracle(ctx, destDir),
	}
	if len(opts.Include) > 0 {
		pm, err := patternmatcher.New(opts.Include)
		if err != nil {
			return Report{}, fmt.Errorf("invalid include pattern: %w", err)
		}
		w.include = pm
	}

	if err := w.walk(ctx, templateDir, ""); err != nil {
		return Report{}, err
	}
	return e.commit(log, destDir, w.plan, opts.DryRun)
}

func (e *Engine) oracle(ctx context.Context, destDir string) ignore.Oracle {
	if e.DetectOracle == nil {
		return nil
	}
	return e.DetectOracle(ctx, destDir)
}

func (e *Engine) merger() *merge.Registry {
	if e.Merger == nil {
		return &merge.Registry{Log: e.Log}
	}
	return e.Merger
}

// prepareDest checks the destination shape and creates it when missing.
func prepareDest(destDir string, dryRun bool) error {
	info, err := os.Lstat(destDir)
	switch {
	case err == nil:
		if info.Mode()&fs.ModeSymlink != 0 {
			return &ApplyError{Kind: SymlinkNotSupported, Path: destDir}
		}
		if !info.IsDir() {
			return &ApplyError{Kind: DestDirNotDir, Path: destDir}
		}
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return ioError(destDir, err)
	case dryRun:
		return nil
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return ioError(destDir, err)
	}
	return nil
}

type walker struct {
	engine  *Engine
	log     logr.Logger
	opts    Options
	decider Decider
	destDir string
	oracle  ignore.Oracle
	include *patternmatcher.PatternMatcher
	plan    plan
}

type dirEntry struct {
	full   string
	rel    string
	isDir  bool
	always bool
}

// walk visits dir, whose path relative to the template root is relDir
// (slash separated, empty for the root). Entries are visited in filename
// order and the oracle is asked once for the whole level.
func (w *walker) walk(ctx context.Context, dir, relDir string) error {
	des, err := os.ReadDir(dir)
	if err != nil {
		return ioError(dir, err)
	}

	entries := make([]dirEntry, 0, len(des))
	var queries []string
	for _, de := range des {
		full := filepath.Join(dir, de.Name())
		if de.Type()&fs.ModeSymlink != 0 {
			return &ApplyError{Kind: SymlinkNotSupported, Path: full}
		}
		ent := dirEntry{
			full:  full,
			rel:   path.Join(relDir, de.Name()),
			isDir: de.IsDir(),
		}
		ent.always = ignore.AlwaysIgnored(ent.rel)
		if !ent.always {
			queries = append(queries, ignore.QueryPath(ent.rel, ent.isDir))
		}
		entries = append(entries, ent)
	}

	var ignored map[string]bool
	if w.oracle != nil && len(queries) > 0 {
		ignored, err = w.oracle.Ignored(ctx, queries)
		if err != nil {
			return oracleError(err)
		}
	}

	for _, ent := range entries {
		switch {
		case ent.always:
			w.log.V(2).Info("ignored (always)", "path", ent.rel)
			w.plan.report.Ignored++
			continue
		case ignored[ignore.QueryPath(ent.rel, ent.isDir)]:
			w.log.V(2).Info("ignored (git)", "path", ent.rel)
			w.plan.report.Ignored++
			continue
		case ent.isDir:
			if err := w.walk(ctx, ent.full, ent.rel); err != nil {
				return err
			}
			continue
		}

		if w.include != nil {
			ok, err := w.include.MatchesOrParentMatches(filepath.FromSlash(ent.rel))
			if err != nil {
				return fmt.Errorf("matching %s: %w", ent.rel, err)
			}
			if !ok {
				continue
			}
		}

		info, err := os.Lstat(ent.full)
		if err != nil {
			return ioError(ent.full, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if err := w.planFile(ctx, ent); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) planFile(ctx context.Context, ent dirEntry) error {
	destPath := filepath.Join(w.destDir, filepath.FromSlash(ent.rel))

	src, err := os.ReadFile(ent.full)
	if err != nil {
		return ioError(ent.full, err)
	}

	dest, err := os.ReadFile(destPath)
	if errors.Is(err, fs.ErrNotExist) {
		w.log.V(2).Info("create", "path", ent.rel)
		w.plan.ops = append(w.plan.ops, fileOp{rel: ent.rel, content: src, kind: opCreate})
		w.plan.report.Created++
		return nil
	}
	if err != nil {
		return ioError(destPath, err)
	}

	if bytes.Equal(src, dest) {
		w.log.V(2).Info("skip (identical)", "path", ent.rel)
		w.plan.report.Skipped++
		return nil
	}

	merged, ok := w.engine.merger().Merge(ctx, ent.rel, dest, src)
	if !ok {
		merged = nil
	} else if merged == nil {
		merged = []byte{}
	}

	action := w.decider.Decide(DecisionContext{
		RelPath:       ent.rel,
		DestPath:      destPath,
		Src:           src,
		Dest:          dest,
		Merged:        merged,
		TemplateName:  w.opts.TemplateName,
		TemplateIndex: w.opts.TemplateIndex,
	})
	w.log.V(2).Info("existing file decision", "path", ent.rel, "action", action.String())

	var out []byte
	switch action {
	case Overwrite:
		out = src
	case Merge:
		if merged == nil {
			w.log.V(1).Info("merge unavailable; skipping", "path", ent.rel)
			w.plan.report.Skipped++
			return nil
		}
		out = merged
	default:
		w.plan.report.Skipped++
		return nil
	}

	if bytes.Equal(out, dest) {
		w.log.V(2).Info("no changes after action", "path", ent.rel, "action", action.String())
		w.plan.report.Skipped++
		return nil
	}
	w.plan.ops = append(w.plan.ops, fileOp{rel: ent.rel, content: out, kind: opReplace})
	w.plan.report.Updated++
	return nil
}

// commit performs the planned writes. On a write failure the returned report
// counts only what completed; earlier writes are left in place.
func (e *Engine) commit(log logr.Logger, destDir string, p plan, dryRun bool) (Report, error) {
	if dryRun {
		return p.report, nil
	}

	done := Report{Skipped: p.report.Skipped, Ignored: p.report.Ignored}
	for _, op := range p.ops {
		rel := filepath.FromSlash(op.rel)
		switch op.kind {
		case opCreate:
			if err := sandbox.Create(destDir, rel, op.content); err != nil {
				return done, ioError(filepath.Join(destDir, rel), err)
			}
			done.Created++
		case opReplace:
			if err := sandbox.Replace(destDir, rel, op.content); err != nil {
				return done, ioError(filepath.Join(destDir, rel), err)
			}
			done.Updated++
		}
	}
	log.V(1).Info("applied", "created", done.Created, "updated", done.Updated, "skipped", done.Skipped, "ignored", done.Ignored)
	return done, nil
}
