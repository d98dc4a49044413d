package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fathom-editor/fathom/internal/plugin"
	"github.com/fathom-editor/fathom/internal/plugin/api"
	"github.com/fathom-editor/fathom/internal/plugin/process"
	"github.com/fathom-editor/fathom/internal/plugin/watcher"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load all plugins and serve events until interrupted",
		Long: `Run discovers every plugin in the configured search paths, loads
them into the interpreter, and services their commands and asynchronous
requests. With watch_reload enabled, source changes trigger a reload.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: cfg.SlogLevel(),
			}))
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			paths := cfg.PluginPaths
			if len(paths) == 0 {
				paths = plugin.DefaultPluginPaths()
			}

			view := api.NewStateView()
			sink := api.NewChannelSink(api.DefaultSinkBuffer)
			mgr, err := plugin.NewManager(view, sink,
				plugin.WithManagerLogger(log),
				plugin.WithLoader(plugin.NewLoader(plugin.WithPaths(paths...))),
				plugin.WithDisabled(cfg.Disabled...),
			)
			if err != nil {
				return err
			}
			mgr.Start(ctx)
			defer func() {
				if err := mgr.Close(context.Background()); err != nil {
					log.Error("closing plugin manager", "error", err)
				}
			}()

			exec := process.NewExecutor(mgr,
				process.WithExecutorLogger(log),
				process.WithForwarder(func(c api.Command) {
					log.Debug("editor command", "command", c.CommandName())
				}),
			)
			go exec.Run(ctx, sink.Commands())

			if err := mgr.LoadAll(ctx); err != nil {
				log.Warn("some plugins failed to load", "error", err)
			}
			for _, info := range mgr.Plugins() {
				log.Info("plugin", "name", info.Name, "state", info.State.String())
			}

			var changes <-chan []string
			if cfg.WatchReload {
				w, err := watcher.New(paths, watcher.WithWatcherLogger(log))
				if err != nil {
					return err
				}
				defer w.Close()
				go w.Run(ctx)
				changes = w.Changes()
			}

			for {
				select {
				case <-ctx.Done():
					log.Info("shutting down")
					return nil
				case batch := <-changes:
					log.Info("plugin sources changed", "files", len(batch))
					if err := mgr.Reload(ctx); err != nil {
						log.Warn("reload finished with errors", "error", err)
					}
				}
			}
		},
	}
}
