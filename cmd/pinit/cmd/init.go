package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/pinit/internal/config"
)

var initForce bool

// initTemplate is the default pinit.toml scaffold. It defines a local
// template source and documents the remaining keys in comments.
const initTemplate = `# pinit configuration
# Docs: https://github.com/bianoble/pinit

# Applied before every bare template (not before targets or recipes).
# base_template = "common"

# Rendered into LICENSE when a template is applied by name.
# license = "MIT"
# [license]
# spdx = "MIT"
# name = "Your Name"
# output = "LICENSE"

[[sources]]
name = "local"
path = "~/.config/pinit/templates"

# Git repository; owner/name expands to a GitHub URL.
# [[sources]]
# name = "team"
# repo = "your-org/templates"
# ref = "main"
# git_protocol = "https"
# subdir = "templates"

[templates]
common = { source = "local", path = "common" }
# rust = { source = "local", path = "rust" }

# A target is a named stack of templates.
# [targets]
# rust = ["common", "rust"]

# Paths matching a pattern bypass the prompt.
# [[overrides]]
# pattern = "**/*.lock"
# action = "skip"

# Recipes add file sets and hooks to a stack.
# [recipes.rust-ci]
# templates = ["common", "rust"]
# [[recipes.rust-ci.files]]
# root = "~/src/ci-snippets"
# include = ["*.yml"]
# dest_prefix = ".github/workflows"

# [[hooks.after_all]]
# command = "git add -A"
# run_on = ["init"]
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter pinit.toml configuration",
	Long: `Creates a pinit.toml in the config directory (or at --config) with a local
template source and commented examples of every other setting.

Use --force to overwrite an existing configuration file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if outPath == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			outPath = p
		}
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created %s\n", outPath)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintln(out, "  1. Put template directories under the local source path")
		fmt.Fprintln(out, "  2. Run 'pinit list' to check the config")
		fmt.Fprintln(out, "  3. Run 'pinit apply <template> [dest]' to apply one")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
