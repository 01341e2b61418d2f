package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/bianoble/pinit/internal/cache"
	"github.com/bianoble/pinit/internal/config"
	"github.com/bianoble/pinit/internal/engine"
)

// ErrUnknownTemplate is returned for names that are not in the config.
var ErrUnknownTemplate = errors.New("unknown template")

// RootResolver turns a source definition into a local directory.
type RootResolver interface {
	Root(ctx context.Context, src config.Source) (string, error)
}

// ResolveError represents a failure to locate a template directory.
type ResolveError struct {
	Template  string
	Operation string
	Err       error
	Hint      string
}

func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("template '%s': %s failed: %s", e.Template, e.Operation, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Resolver maps template names to directories on disk, fetching git-backed
// sources into the cache when needed.
type Resolver struct {
	Local RootResolver
	Git   RootResolver
	Log   logr.Logger
}

// NewResolver returns a Resolver using c for git checkouts.
func NewResolver(c *cache.Cache, log logr.Logger) *Resolver {
	return &Resolver{
		Local: LocalResolver{},
		Git:   &GitResolver{Cache: c, Log: log},
		Log:   log,
	}
}

// TemplateDir resolves a single template name to an existing directory.
func (r *Resolver) TemplateDir(ctx context.Context, cfg *config.Config, name string) (string, error) {
	def, ok := cfg.Templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	dir, err := r.templatePath(ctx, cfg, name, def)
	if err != nil {
		return "", err
	}
	if err := ensureDir(dir); err != nil {
		return "", &ResolveError{Template: name, Operation: "resolve", Err: err, Hint: "check the template path in the config"}
	}
	r.Log.V(1).Info("resolved template", "template", name, "dir", dir)
	return dir, nil
}

func (r *Resolver) templatePath(ctx context.Context, cfg *config.Config, name string, def config.TemplateDef) (string, error) {
	if def.Source == "" || filepath.IsAbs(def.Path) {
		return def.Path, nil
	}

	var src *config.Source
	for i := range cfg.Sources {
		if cfg.Sources[i].Name == def.Source {
			src = &cfg.Sources[i]
			break
		}
	}
	if src == nil {
		return "", &ResolveError{Template: name, Operation: "resolve", Err: fmt.Errorf("unknown template source: %s", def.Source)}
	}

	var (
		root string
		err  error
	)
	switch {
	case src.Path != "":
		root, err = r.Local.Root(ctx, *src)
	case src.Repo != "":
		root, err = r.Git.Root(ctx, *src)
		if err != nil {
			return "", &ResolveError{Template: name, Operation: "fetch", Err: err, Hint: "check repo URL, ref, and authentication"}
		}
	default:
		err = fmt.Errorf("source '%s' has neither 'path' nor 'repo'", src.Name)
	}
	if err != nil {
		return "", &ResolveError{Template: name, Operation: "resolve", Err: err}
	}
	return filepath.Join(root, src.Subdir, def.Path), nil
}

// Layers resolves every template of res and appends its file sets, producing
// the stack the engine applies. Templates are numbered in stack order.
func (r *Resolver) Layers(ctx context.Context, cfg *config.Config, res *config.Resolved) ([]engine.Layer, error) {
	layers := make([]engine.Layer, 0, len(res.Templates)+len(res.Files))
	for _, name := range res.Templates {
		dir, err := r.TemplateDir(ctx, cfg, name)
		if err != nil {
			return nil, err
		}
		layers = append(layers, engine.Layer{Name: name, Dir: dir})
	}
	for _, set := range res.Files {
		layers = append(layers, engine.Layer{
			Name:       res.Name,
			Dir:        set.Root,
			Include:    set.Include,
			DestPrefix: set.DestPrefix,
		})
	}
	return layers, nil
}

func ensureDir(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("template path is not a directory: %s", path)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("template path is not a directory: %s", path)
	}
	return nil
}
