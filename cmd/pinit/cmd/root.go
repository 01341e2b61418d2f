package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/bianoble/pinit/internal/logging"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	verbosity  int
	noColor    bool
)

// logger is built from -v and PINIT_LOG before any command runs.
var logger = logr.Discard()

var rootCmd = &cobra.Command{
	Use:   "pinit",
	Short: "Apply project template baselines",
	Long: `pinit applies template directories to new or existing projects. Missing
files are created; files that already exist can be overwritten, skipped or
additively merged so that only content the project lacks is added.

Templates, targets and recipes are defined in a config file found under
$XDG_CONFIG_HOME/pinit or ~/.config/pinit, or given with --config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := os.Getenv("PINIT_LOG")
		if level == "" {
			level = logging.LevelForVerbosity(verbosity)
		}
		l, err := logging.New(cmd.ErrOrStderr(), level)
		if err != nil {
			return fmt.Errorf("PINIT_LOG: %w", err)
		}
		logger = l
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = cmd.Help()
		return &usageError{}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pinit %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (overrides default discovery)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v, -vv, -vvv)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}
	var ue *usageError
	if !errors.As(err, &ue) || ue.err != nil {
		errorf("%s", err)
	}
	return err
}

// usageError is a command line misuse. It makes the process exit with
// status 2; a nil err means help was already printed.
type usageError struct{ err error }

func (e *usageError) Error() string {
	if e.err == nil {
		return "usage"
	}
	return e.err.Error()
}

func (e *usageError) Unwrap() error { return e.err }

// ExitCode maps an Execute error to a process exit status.
func ExitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}
