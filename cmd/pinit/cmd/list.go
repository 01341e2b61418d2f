package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bianoble/pinit/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates, targets and recipes from the config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Find(configPath)
		if errors.Is(err, config.ErrNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "no config found")
			return nil
		}
		if err != nil {
			return err
		}
		logger.V(1).Info("loaded config", "config", cfg.Path)
		printConfig(cmd, cfg)
		return nil
	},
}

func printConfig(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config: %s\n", cfg.Path)

	if len(cfg.Templates) > 0 {
		fmt.Fprintln(out, "\ntemplates:")
		for _, name := range sortedNames(cfg.Templates) {
			def := cfg.Templates[name]
			src := def.Source
			if src == "" {
				src = "-"
			}
			fmt.Fprintf(out, "  %s (source: %s, path: %s)\n", name, src, def.Path)
		}
	}

	if len(cfg.Targets) > 0 {
		fmt.Fprintln(out, "\ntargets:")
		for _, name := range sortedNames(cfg.Targets) {
			fmt.Fprintf(out, "  %s = %s\n", name, strings.Join(cfg.Targets[name].Templates, " + "))
		}
	}

	if len(cfg.Recipes) > 0 {
		fmt.Fprintln(out, "\nrecipes:")
		for _, name := range sortedNames(cfg.Recipes) {
			r := cfg.Recipes[name]
			templates := "-"
			if len(r.Templates) > 0 {
				templates = strings.Join(r.Templates, " + ")
			}
			fmt.Fprintf(out, "  %s (templates: %s, filesets: %d)\n", name, templates, len(r.Files))
		}
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	rootCmd.AddCommand(listCmd)
}
