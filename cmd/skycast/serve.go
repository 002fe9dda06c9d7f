// ABOUTME: Serve command
// ABOUTME: Runs the HTTP API with a forecast watcher following the active location

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/skycast/internal/api"
	"github.com/harper/skycast/internal/forecast"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the JSON API for locations and weather.

The forecast refreshes whenever the active location changes and on the
configured refresh_interval.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxOf(cmd)
		if _, err := app.Resolver.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to resolve location: %w", err)
		}

		watcher := startWatcher()
		if watcher != nil {
			defer watcher.Stop()
		}

		var weather api.Weather
		if watcher != nil {
			weather = watcher
		}
		server := api.New(api.Options{Locations: app.Resolver, Weather: weather, Logger: logger})

		port := cfg.GetPort()
		if servePort != 0 {
			port = servePort
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Listen(fmt.Sprintf(":%d", port))
		}()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "skycast api listening on :%d\n", port)

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error during shutdown", "err", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("server stopped", "err", err)
		}
		return nil
	},
}

// startWatcher starts a forecast watcher for the active location. It returns nil when scheduling fails.
func startWatcher() *forecast.Watcher {
	w := forecast.NewWatcher(forecast.WatcherOptions{
		Fetcher:  app.Forecast,
		Source:   app.Resolver,
		Interval: cfg.GetRefreshInterval(),
		Units:    app.Units,
		Logger:   logger,
	})
	if err := w.Start(); err != nil {
		logger.Warn("forecast watcher disabled", "err", err)
		return nil
	}
	return w
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config, 8080)")
	rootCmd.AddCommand(serveCmd)
}
