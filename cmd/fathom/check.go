package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fathom-editor/fathom/internal/plugin"
	"github.com/fathom-editor/fathom/internal/plugin/transpile"
)

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [plugin files...]",
		Short: "Transpile plugins without running them and report errors",
		Long: `Check runs every given plugin source through the transpiler (and the
bundler, when it imports local modules) and reports diagnostics. Without
arguments it checks every discovered plugin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := args
			if len(entries) == 0 {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				paths := cfg.PluginPaths
				if len(paths) == 0 {
					paths = plugin.DefaultPluginPaths()
				}
				for _, info := range plugin.NewLoader(plugin.WithPaths(paths...)).Discover() {
					entries = append(entries, info.Entry)
				}
			}
			if len(entries) == 0 {
				cmd.Println("no plugins found")
				return nil
			}

			failed := 0
			for _, entry := range entries {
				if err := checkEntry(entry); err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", entry, err)
					continue
				}
				cmd.Printf("%s: ok\n", entry)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d plugins failed", failed, len(entries))
			}
			return nil
		},
	}
}

func checkEntry(entry string) error {
	source, err := os.ReadFile(entry)
	if err != nil {
		return err
	}
	if transpile.HasModuleSyntax(string(source)) {
		_, err = transpile.Bundle(entry)
		return err
	}
	_, err = transpile.Transpile(string(source), entry)
	return err
}
