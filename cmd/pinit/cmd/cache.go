package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/pinit/internal/cache"
)

var cacheClean bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show or clean the template repository cache",
	Long: `Prints where git-backed template sources are checked out, how many
checkouts exist and how much space they use. With --clean, removes every
checkout; they are cloned again on next use.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := cache.DefaultDir()
		if err != nil {
			return err
		}
		c, err := cache.New(dir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if cacheClean {
			if err := c.Clean(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleaned %s\n", c.Path())
			return nil
		}

		keys, err := c.Entries()
		if err != nil {
			return err
		}
		size, err := c.Size()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  cache dir:     %s\n", c.Path())
		fmt.Fprintf(out, "  checkouts:     %d\n", len(keys))
		fmt.Fprintf(out, "  cache size:    %s\n", humanSize(size))
		return nil
	},
}

func init() {
	cacheCmd.Flags().BoolVar(&cacheClean, "clean", false, "remove every cached checkout")
	rootCmd.AddCommand(cacheCmd)
}
