package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bianoble/pinit/internal/config"
	"github.com/bianoble/pinit/internal/decide"
	"github.com/bianoble/pinit/internal/engine"
	"github.com/bianoble/pinit/pkg/pinit"
)

// applyFlags are shared by apply and new.
type applyFlags struct {
	dryRun         bool
	yes            bool
	overwrite      bool
	merge          bool
	skip           bool
	overrides      []string
	overrideAction string
}

func (f *applyFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.dryRun, "dry-run", "n", false, "print what would change without writing")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "non-interactive; apply the selected behavior to all files")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "when a file exists, overwrite it")
	cmd.Flags().BoolVar(&f.merge, "merge", false, "when a file exists, attempt an additive merge (default)")
	cmd.Flags().BoolVar(&f.skip, "skip", false, "when a file exists, leave it alone")
	cmd.Flags().StringArrayVar(&f.overrides, "override", nil, "glob of paths that bypass the prompt (repeatable)")
	cmd.Flags().StringVar(&f.overrideAction, "override-action", config.ActionOverwrite, "action for --override paths: overwrite, merge or skip")
	cmd.MarkFlagsMutuallyExclusive("overwrite", "merge", "skip")
}

func (f *applyFlags) defaultAction() engine.Action {
	switch {
	case f.overwrite:
		return engine.Overwrite
	case f.skip:
		return engine.Skip
	}
	return engine.Merge
}

// interactive reports whether conflicts should be prompted for.
func (f *applyFlags) interactive(cmd *cobra.Command) bool {
	if f.yes || f.overwrite || f.merge || f.skip {
		return false
	}
	return decide.IsTerminal(cmd.InOrStdin())
}

// decider builds the conflict decider for plan: the plan's override rules
// followed by those given on the command line.
func (f *applyFlags) decider(cmd *cobra.Command, plan *pinit.Plan) (*decide.CLI, error) {
	if _, err := engine.ParseAction(f.overrideAction); err != nil {
		return nil, fmt.Errorf("--override-action: %w", err)
	}
	rules := append([]config.OverrideRule(nil), plan.Overrides...)
	for _, p := range f.overrides {
		rules = append(rules, config.OverrideRule{Pattern: p, Action: f.overrideAction})
	}
	return decide.New(decide.Options{
		Default:        f.defaultAction(),
		NonInteractive: !f.interactive(cmd),
		Overrides:      rules,
		In:             cmd.InOrStdin(),
		Out:            cmd.ErrOrStderr(),
		Color:          colorEnabled(),
	})
}

// newClient creates a library client from the global flags.
func newClient(cmd *cobra.Command) (*pinit.Client, error) {
	return pinit.New(pinit.Options{
		ConfigPath: configPath,
		Log:        logger,
		Out:        cmd.ErrOrStderr(),
	})
}

func colorEnabled() bool {
	return !noColor && !color.NoColor && decide.IsTerminal(os.Stderr)
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
