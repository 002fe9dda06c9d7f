// ABOUTME: Current command
// ABOUTME: Resolves and shows the active location, optionally with its forecast

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/skycast/internal/ui"
)

var currentCmd = &cobra.Command{
	Use:     "current",
	Aliases: []string{"c"},
	Short:   "Show the active location",
	Long: `Show the active location and how it was chosen.

Sources are tried in order: default location, last used location, first saved
location, device position, IP lookup, then the configured fallback.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxOf(cmd)
		active, err := app.Resolver.Initialize(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve location: %w", err)
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, ui.FormatActive(active))

		withWeather, _ := cmd.Flags().GetBool("weather")
		if !withWeather {
			return nil
		}
		report, err := app.Weather(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch weather: %w", err)
		}
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprint(out, ui.FormatReport(report))
		return nil
	},
}

func init() {
	currentCmd.Flags().BoolP("weather", "w", false, "also show the forecast")
	rootCmd.AddCommand(currentCmd)
}
