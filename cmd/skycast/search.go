// ABOUTME: Search, use, and save commands
// ABOUTME: Finds places by name and makes them active or saves them

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/skycast/internal/models"
	"github.com/harper/skycast/internal/ui"
)

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Aliases: []string{"s"},
	Short:   "Search places by name",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		results, err := app.Resolver.Search(ctxOf(cmd), query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			_, _ = fmt.Fprintln(out, color.New(color.Faint).Sprintf("No places found for '%s'", query))
			return nil
		}
		for i, c := range results {
			_, _ = fmt.Fprintln(out, ui.FormatCandidate(i+1, c))
		}
		return nil
	},
}

var useCmd = &cobra.Command{
	Use:   "use [query]",
	Short: "Make a place the active location",
	Long: `Make a place the active location, by name or by coordinates.

Examples:
  skycast use paris
  skycast use springfield --index 3
  skycast use --lat 51.5074 --lon -0.1278`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxOf(cmd)
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		index, _ := cmd.Flags().GetInt("index")

		var candidate models.Candidate
		switch {
		case len(args) > 0:
			c, err := pick(ctx, strings.Join(args, " "), index)
			if err != nil {
				return err
			}
			candidate = c
		case cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon"):
			candidate = models.Candidate{Latitude: lat, Longitude: lon}
		default:
			return fmt.Errorf("give a place name or both --lat and --lon")
		}

		if err := app.Resolver.SetLocation(ctx, candidate, models.SourceSearch); err != nil {
			return fmt.Errorf("failed to set location: %w", err)
		}
		active, _ := app.Resolver.Active()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓ Now using"), ui.FormatActive(active))
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save [query]",
	Short: "Save a place, or the active location when no query is given",
	Long: `Save a place to your saved locations. The first saved place becomes the default.

Examples:
  skycast save
  skycast save tokyo
  skycast save springfield --index 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxOf(cmd)
		index, _ := cmd.Flags().GetInt("index")

		var candidate models.Candidate
		if len(args) > 0 {
			c, err := pick(ctx, strings.Join(args, " "), index)
			if err != nil {
				return err
			}
			candidate = c
		} else {
			active, err := app.Resolver.Initialize(ctx)
			if err != nil {
				return fmt.Errorf("failed to resolve location: %w", err)
			}
			candidate = active.Candidate
		}

		loc := models.SavedLocation{Candidate: candidate}
		if err := loc.Validate(); err != nil {
			return fmt.Errorf("cannot save %s: %w", candidate.Label(), err)
		}
		if err := app.Resolver.SaveLocation(ctx, loc); err != nil {
			return fmt.Errorf("failed to save location: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓ Saved"), color.CyanString(candidate.Label()))
		return nil
	},
}

// pick searches for query and returns the 1-based index-th result.
func pick(ctx context.Context, query string, index int) (models.Candidate, error) {
	results, err := app.Resolver.Search(ctx, query)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return models.Candidate{}, fmt.Errorf("no places found for '%s'", query)
	}
	if index < 1 || index > len(results) {
		return models.Candidate{}, fmt.Errorf("index %d out of range (1-%d)", index, len(results))
	}
	return results[index-1], nil
}

func init() {
	useCmd.Flags().Float64("lat", 0, "latitude")
	useCmd.Flags().Float64("lon", 0, "longitude")
	useCmd.Flags().IntP("index", "i", 1, "which search result to use")
	saveCmd.Flags().IntP("index", "i", 1, "which search result to save")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(saveCmd)
}
