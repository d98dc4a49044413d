package main

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/fathom-editor/fathom/internal/plugin"
)

// NewListCmd creates the list subcommand.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered plugins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			paths := cfg.PluginPaths
			if len(paths) == 0 {
				paths = plugin.DefaultPluginPaths()
			}

			plugins := plugin.NewLoader(plugin.WithPaths(paths...)).Discover()
			if len(plugins) == 0 {
				cmd.Println("no plugins found")
				return nil
			}
			for _, info := range plugins {
				state := "enabled"
				if slices.Contains(cfg.Disabled, info.Name) {
					state = "disabled"
				}
				cmd.Printf("%-20s %-9s %s\n", info.Name, state, info.Entry)
			}
			return nil
		},
	}
}
