package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/pinit/pkg/pinit"
)

var (
	newOpts   applyFlags
	newNoGit  bool
	newBranch string
)

var newCmd = &cobra.Command{
	Use:   "new TEMPLATE DIR",
	Short: "Create a new project directory from a template",
	Long: `Creates DIR, initializes a git repository in it and applies TEMPLATE.
DIR must not exist or must be an empty directory.

With --dry-run nothing is created; pinit prints what it would do.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		template, dir := args[0], args[1]
		logger.V(1).Info("new", "template", template, "dir", dir, "dryRun", newOpts.dryRun, "git", !newNoGit, "branch", newBranch)

		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		plan, err := client.Resolve(cmd.Context(), template)
		if err != nil {
			return err
		}
		flags := newOpts
		if flags.dryRun {
			flags.yes = true
		}
		d, err := flags.decider(cmd, plan)
		if err != nil {
			return err
		}

		report, err := client.Create(cmd.Context(), plan, dir, pinit.CreateOptions{
			ApplyOptions: pinit.ApplyOptions{DryRun: newOpts.dryRun, Decider: d},
			Git:          !newNoGit,
			Branch:       newBranch,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Summary(newOpts.dryRun))
		return nil
	},
}

func init() {
	newOpts.register(newCmd)
	newCmd.Flags().BoolVar(&newNoGit, "no-git", false, "do not initialize a git repository")
	newCmd.Flags().StringVar(&newBranch, "branch", "main", "initial git branch")
	rootCmd.AddCommand(newCmd)
}
