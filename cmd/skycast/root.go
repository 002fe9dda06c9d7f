// ABOUTME: Root Cobra command and global state
// ABOUTME: Loads config and builds the resolver before commands, flushes and closes it after

package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harper/skycast/internal/config"
	"github.com/harper/skycast/internal/logging"
)

// annotationNoResolver marks commands that only need config.
const annotationNoResolver = "skycast/no-resolver"

var (
	cfg      *config.Config
	logger   *log.Logger
	app      *App
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "skycast",
	Short: "Weather for wherever you are",
	Long: `
███████╗██╗  ██╗██╗   ██╗ ██████╗ █████╗ ███████╗████████╗
██╔════╝██║ ██╔╝╚██╗ ██╔╝██╔════╝██╔══██╗██╔════╝╚══██╔══╝
███████╗█████╔╝  ╚████╔╝ ██║     ███████║███████╗   ██║
╚════██║██╔═██╗   ╚██╔╝  ██║     ██╔══██║╚════██║   ██║
███████║██║  ██╗   ██║   ╚██████╗██║  ██║███████║   ██║
╚══════╝╚═╝  ╚═╝   ╚═╝    ╚═════╝╚═╝  ╚═╝╚══════╝   ╚═╝

     Picks your location, remembers your places, shows the weather

Examples:
  skycast current --weather
  skycast search springfield
  skycast use london --index 2
  skycast save
  skycast saved`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		logger = logging.New(level)

		if cmd.Annotations[annotationNoResolver] == "true" {
			return nil
		}
		app, err = NewApp(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},
}

// closeApp flushes and closes the app if one is open. Cobra skips the post-run
// hook when a command fails, so main calls this too.
func closeApp() error {
	if app == nil {
		return nil
	}
	err := app.Close()
	app = nil
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// noResolver marks cmd as not needing the resolver.
func noResolver(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationNoResolver] = "true"
	return cmd
}

// ctxOf returns the command context, or Background when run outside Execute.
func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
