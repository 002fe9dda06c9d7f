// ABOUTME: Commands for saved and recent locations
// ABOUTME: List, set default, remove, and forget

package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/skycast/internal/models"
	"github.com/harper/skycast/internal/ui"
)

var savedCmd = &cobra.Command{
	Use:     "saved",
	Aliases: []string{"ls"},
	Short:   "List saved locations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printLocations(cmd, app.Resolver.Saved(), "No saved locations. Use 'skycast save' to add one.")
		return nil
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently used locations, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printLocations(cmd, app.Resolver.Recent(), "No recent locations.")
		return nil
	},
}

var defaultCmd = &cobra.Command{
	Use:   "default <id>",
	Short: "Make a saved location the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, loc, err := findByID(app.Resolver.Saved(), args[0], "saved")
		if err != nil {
			return err
		}
		if err := app.Resolver.SetDefaultLocation(ctxOf(cmd), id); err != nil {
			return fmt.Errorf("failed to set default: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓ Default is now"), color.CyanString(loc.Label()))
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a saved location",
	Long: `Remove a saved location. Removing the default promotes the next saved
location, which also becomes active.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, loc, err := findByID(app.Resolver.Saved(), args[0], "saved")
		if err != nil {
			return err
		}
		prev, hadDefault := app.Resolver.Default()
		if err := app.Resolver.RemoveLocation(ctxOf(cmd), id); err != nil {
			return fmt.Errorf("failed to remove location: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓ Removed"), loc.Label())
		if !hadDefault || prev.ID != id {
			return nil
		}
		if def, ok := app.Resolver.Default(); ok {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  default is now %s\n", color.CyanString(def.Label()))
		} else {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "  no default location left")
		}
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Remove a location from the recent list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, loc, err := findByID(app.Resolver.Recent(), args[0], "recent")
		if err != nil {
			return err
		}
		if err := app.Resolver.RemoveFromRecent(ctxOf(cmd), id); err != nil {
			return fmt.Errorf("failed to forget location: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓ Forgot"), loc.Label())
		return nil
	},
}

func printLocations(cmd *cobra.Command, list []models.SavedLocation, empty string) {
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		_, _ = fmt.Fprintln(out, color.New(color.Faint).Sprint(empty))
		return
	}
	for _, loc := range list {
		_, _ = fmt.Fprintln(out, ui.FormatSaved(loc))
	}
}

func findByID(list []models.SavedLocation, raw, what string) (int64, models.SavedLocation, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, models.SavedLocation{}, fmt.Errorf("invalid id %q", raw)
	}
	idx := models.IndexByID(list, id)
	if idx < 0 {
		return 0, models.SavedLocation{}, fmt.Errorf("no %s location with id %d", what, id)
	}
	return id, list[idx], nil
}

func init() {
	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(defaultCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(forgetCmd)
}
