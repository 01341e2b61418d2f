package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/pinit/internal/config"
	"github.com/bianoble/pinit/pkg/pinit"
)

var applyOpts applyFlags

var applyCmd = &cobra.Command{
	Use:   "apply TEMPLATE [DEST]",
	Short: "Apply a template into a destination directory",
	Long: `Applies TEMPLATE into DEST (default: the current directory). TEMPLATE is a
path to a template directory or the name of a template, target or recipe from
the config file. Named templates also run the configured hooks and write the
configured license.

Files that already exist are merged by default. Without --yes or an explicit
--overwrite, --merge or --skip, each conflict is prompted for when stdin is a
terminal.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := "."
		if len(args) == 2 {
			dest = args[1]
		}
		logger.V(1).Info("apply", "template", args[0], "dest", dest, "dryRun", applyOpts.dryRun)

		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		plan, err := client.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		d, err := applyOpts.decider(cmd, plan)
		if err != nil {
			return err
		}

		report, err := client.Apply(cmd.Context(), plan, dest, pinit.ApplyOptions{
			DryRun:  applyOpts.dryRun,
			Decider: d,
			Event:   config.RunOnUpdate,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Summary(applyOpts.dryRun))
		return nil
	},
}

func init() {
	applyOpts.register(applyCmd)
	rootCmd.AddCommand(applyCmd)
}
