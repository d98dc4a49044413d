package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fathom-editor/fathom/internal/plugin/transpile"
)

// NewBundleCmd creates the bundle subcommand.
func NewBundleCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "bundle <entry>",
		Short: "Bundle a plugin and its local imports into one script",
		Long: `Bundle transpiles the entry file and every local module it imports,
emitting a single executable script with dependencies first. The result
is what the interpreter would evaluate when loading the plugin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundled, err := transpile.Bundle(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				cmd.Print(bundled)
				return nil
			}
			return os.WriteFile(output, []byte(bundled), 0o644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the bundle to a file instead of stdout")
	return cmd
}
