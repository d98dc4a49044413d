package main

import (
	"github.com/spf13/cobra"

	"github.com/fathom-editor/fathom/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Fathom plugin host CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fathom",
		Short: "Fathom - TypeScript plugin host for the Fathom editor",
		Long: `Fathom runs the editor's plugin system: it transpiles and bundles
TypeScript plugins, executes them in an embedded interpreter, and
bridges their commands and asynchronous requests to the editor.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewBundleCmd())
	cmd.AddCommand(NewListCmd())

	return cmd
}

// loadConfig loads the configuration honoring the --config flag.
func loadConfig() (config.Config, error) {
	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}
