package pinit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/bianoble/pinit/internal/cache"
	"github.com/bianoble/pinit/internal/config"
	"github.com/bianoble/pinit/internal/engine"
	"github.com/bianoble/pinit/internal/hooks"
	"github.com/bianoble/pinit/internal/license"
	"github.com/bianoble/pinit/internal/source"
)

// Options configures a pinit Client.
type Options struct {
	// ConfigPath is the config file. If empty, the default locations under
	// the user config directory are searched.
	ConfigPath string

	// CacheDir holds git checkouts. If empty, uses the default (~/.cache/pinit).
	CacheDir string

	Log logr.Logger

	// Out receives hook output and dry-run notes. Default: os.Stderr.
	Out io.Writer

	// Now supplies the default license year. Default: time.Now.
	Now func() time.Time
}

// Client resolves template names through a pinit config and applies them,
// running hooks and writing the configured license.
type Client struct {
	opts   Options
	log    logr.Logger
	out    io.Writer
	engine *engine.Engine

	cfg       *config.Config
	cfgErr    error
	cfgLoaded bool
	resolver  *source.Resolver
}

// New creates a Client. The config file is read on first use.
func New(opts Options) (*Client, error) {
	if opts.CacheDir == "" {
		dir, err := cache.DefaultDir()
		if err != nil {
			return nil, err
		}
		opts.CacheDir = dir
	}
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	return &Client{
		opts:   opts,
		log:    opts.Log,
		out:    out,
		engine: engine.New(opts.Log),
	}, nil
}

// Config loads the config file once and returns it.
func (c *Client) Config() (*config.Config, error) {
	if !c.cfgLoaded {
		c.cfg, c.cfgErr = config.Find(c.opts.ConfigPath)
		c.cfgLoaded = true
	}
	return c.cfg, c.cfgErr
}

func (c *Client) sourceResolver() (*source.Resolver, error) {
	if c.resolver != nil {
		return c.resolver, nil
	}
	ch, err := cache.New(c.opts.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}
	c.resolver = source.NewResolver(ch, c.log)
	return c.resolver, nil
}

// Plan is a template argument resolved into the layers to apply.
type Plan struct {
	Name string

	// ByName is set when the argument named a config entry rather than a
	// directory. Only such plans run hooks and write the license.
	ByName bool

	Layers    []Layer
	Overrides []config.OverrideRule
	Hooks     config.HookSet
}

// Resolve turns a template argument into a Plan. An existing directory is
// used as-is; anything else is looked up in the config.
func (c *Client) Resolve(ctx context.Context, template string) (*Plan, error) {
	if info, err := os.Stat(template); err == nil && info.IsDir() {
		name := filepath.Base(filepath.Clean(template))
		if abs, err := filepath.Abs(template); err == nil {
			name = filepath.Base(abs)
		}
		return &Plan{Name: name, Layers: []Layer{{Name: name, Dir: template}}}, nil
	}

	cfg, err := c.Config()
	if errors.Is(err, config.ErrNotFound) {
		return nil, fmt.Errorf("unknown template: %s (%w)", template, err)
	}
	if err != nil {
		return nil, err
	}
	res, ok := cfg.Resolve(template)
	if !ok {
		return nil, fmt.Errorf("unknown template: %s", template)
	}
	r, err := c.sourceResolver()
	if err != nil {
		return nil, err
	}
	layers, err := r.Layers(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	c.log.V(1).Info("resolved template", "template", template, "kind", res.Kind.String(), "layers", len(layers))
	return &Plan{
		Name:      res.Name,
		ByName:    true,
		Layers:    layers,
		Overrides: res.Overrides,
		Hooks:     res.Hooks,
	}, nil
}

// ApplyOptions configures Apply and Create.
type ApplyOptions struct {
	DryRun  bool
	Decider Decider

	// Event selects which hooks run: config.RunOnInit or config.RunOnUpdate.
	// Default: config.RunOnUpdate.
	Event string
}

// Apply applies p into dest. For named plans the after_recipe hooks run
// once the stack is applied, then the license is written, then the
// after_all hooks run.
func (c *Client) Apply(ctx context.Context, p *Plan, dest string, opts ApplyOptions) (Report, error) {
	d := opts.Decider
	if d == nil {
		d = SkipExisting{}
	}
	event := opts.Event
	if event == "" {
		event = config.RunOnUpdate
	}
	eo := engine.Options{DryRun: opts.DryRun}

	report, err := c.engine.ApplyStack(ctx, p.Layers, dest, eo, d)
	if err != nil || !p.ByName {
		return report, err
	}

	runner := c.hookRunner(opts.DryRun)
	if err := runner.Run(ctx, hooks.AfterRecipe, event, c.hooksFor(p, hooks.AfterRecipe), dest); err != nil {
		return report, err
	}

	r, err := c.applyLicense(ctx, dest, eo, d)
	report.Add(r)
	if err != nil {
		return report, err
	}

	if err := runner.Run(ctx, hooks.AfterAll, event, c.hooksFor(p, hooks.AfterAll), dest); err != nil {
		return report, err
	}
	return report, nil
}

func (c *Client) applyLicense(ctx context.Context, dest string, eo engine.Options, d Decider) (Report, error) {
	if c.cfg == nil || c.cfg.License == nil {
		return Report{}, nil
	}
	rel, content, err := license.Producer{Now: c.opts.Now}.File(c.cfg.License)
	if err != nil {
		return Report{}, fmt.Errorf("license: %w", err)
	}
	c.log.Info("apply license", "spdx", c.cfg.License.SPDX, "path", rel)
	return c.engine.ApplyGenerated(ctx, dest, rel, content, eo, d)
}

// hooksFor returns the global hooks for phase followed by the plan's own.
func (c *Client) hooksFor(p *Plan, phase string) []config.Hook {
	var out []config.Hook
	if c.cfg != nil {
		out = append(out, hooks.ForPhase(c.cfg.Hooks, phase)...)
	}
	return append(out, hooks.ForPhase(p.Hooks, phase)...)
}

func (c *Client) hookRunner(dryRun bool) *hooks.Runner {
	return &hooks.Runner{Out: c.out, Log: c.log, DryRun: dryRun}
}

// CreateOptions configures Create.
type CreateOptions struct {
	ApplyOptions

	// Git initializes a repository on Branch before applying.
	Git    bool
	Branch string
}

// Create makes a new project directory and applies p into it. dir must not
// exist or be an empty directory. Hooks run with the init event.
func (c *Client) Create(ctx context.Context, p *Plan, dir string, opts CreateOptions) (Report, error) {
	opts.Event = config.RunOnInit
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if err := checkNewDir(dir); err != nil {
		return Report{}, err
	}

	if opts.DryRun {
		fmt.Fprintf(c.out, "dry-run: would create directory %s\n", dir)
		if opts.Git {
			fmt.Fprintf(c.out, "dry-run: would run git init (branch %s)\n", opts.Branch)
		} else {
			fmt.Fprintln(c.out, "dry-run: would skip git init")
		}
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Report{}, fmt.Errorf("creating %s: %w", dir, err)
		}
		if opts.Git {
			if err := source.InitRepo(ctx, c.log, dir, opts.Branch); err != nil {
				return Report{}, err
			}
		}
	}

	if p.ByName {
		runner := c.hookRunner(opts.DryRun)
		if err := runner.Run(ctx, hooks.AfterDirCreate, opts.Event, c.hooksFor(p, hooks.AfterDirCreate), dir); err != nil {
			return Report{}, err
		}
	}
	return c.Apply(ctx, p, dir, opts.ApplyOptions)
}

func checkNewDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("destination is not a directory: %s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("destination already exists and is not empty: %s", dir)
	}
	return nil
}
