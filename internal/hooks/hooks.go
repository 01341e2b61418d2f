// Package hooks runs the commands configured to follow directory creation,
// each applied recipe, and the whole run.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/go-logr/logr"
	"github.com/mitchellh/go-homedir"

	"github.com/bianoble/pinit/internal/config"
)

// Phases.
const (
	AfterDirCreate = "after_dir_create"
	AfterRecipe    = "after_recipe"
	AfterAll       = "after_all"
)

// ForPhase returns the hooks of set registered for phase.
func ForPhase(set config.HookSet, phase string) []config.Hook {
	switch phase {
	case AfterDirCreate:
		return set.AfterDirCreate
	case AfterRecipe:
		return set.AfterRecipe
	case AfterAll:
		return set.AfterAll
	}
	return nil
}

// Error is a hook that exited unsuccessfully.
type Error struct {
	Phase   string
	Command string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s hook failed (%d) running %s: %v", e.Phase, e.Status, e.Command, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Runner executes hooks with their output attached to Out and ErrOut.
type Runner struct {
	Out    io.Writer
	ErrOut io.Writer
	Log    logr.Logger
	DryRun bool
}

// Run executes, in order, every hook enabled for event. dir is the
// destination directory hooks run in unless they set their own cwd. The
// first failing hook without allow_failure stops the run.
func (r *Runner) Run(ctx context.Context, phase, event string, hooks []config.Hook, dir string) error {
	for _, h := range hooks {
		if !h.RunsOn(event) {
			r.Log.V(2).Info("hook not enabled for event", "phase", phase, "event", event, "command", h.Command.String())
			continue
		}
		if err := r.runOne(ctx, phase, event, h, dir); err != nil {
			if h.AllowFailure {
				r.Log.Info("hook failed; continuing", "phase", phase, "command", h.Command.String(), "error", err.Error())
				continue
			}
			return err
		}
	}
	return nil
}

func (r *Runner) runOne(ctx context.Context, phase, event string, h config.Hook, dir string) error {
	if len(h.Command) == 0 {
		return &Error{Phase: phase, Status: -1, Err: errors.New("empty command")}
	}
	workDir, err := hookWorkDir(dir, h.Cwd)
	if err != nil {
		return &Error{Phase: phase, Command: h.Command.String(), Status: -1, Err: err}
	}
	if r.DryRun {
		fmt.Fprintf(r.out(), "dry-run: would run %s hook: %s (in %s)\n", phase, h.Command.String(), workDir)
		return nil
	}

	r.Log.V(1).Info("running hook", "phase", phase, "command", h.Command.String(), "dir", workDir)
	cmd := exec.CommandContext(ctx, h.Command[0], h.Command[1:]...)
	cmd.Dir = workDir
	cmd.Env = buildEnv(h, phase, event, dir)
	cmd.Stdout = r.out()
	cmd.Stderr = r.errOut()
	if err := cmd.Run(); err != nil {
		status := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			status = ee.ExitCode()
		}
		return &Error{Phase: phase, Command: h.Command.String(), Status: status, Err: err}
	}
	return nil
}

func hookWorkDir(dir, cwd string) (string, error) {
	if cwd == "" {
		return dir, nil
	}
	expanded, err := homedir.Expand(cwd)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return expanded, nil
	}
	return filepath.Join(dir, expanded), nil
}

func buildEnv(h config.Hook, phase, event, dir string) []string {
	env := append([]string(nil), os.Environ()...)
	env = append(env,
		"PINIT_HOOK_PHASE="+phase,
		"PINIT_HOOK_EVENT="+event,
		"PINIT_DEST="+dir,
	)
	keys := make([]string, 0, len(h.Env))
	for k := range h.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+h.Env[k])
	}
	return env
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}

func (r *Runner) errOut() io.Writer {
	if r.ErrOut == nil {
		return r.out()
	}
	return r.ErrOut
}
