// ABOUTME: Export command for GeoJSON output
// ABOUTME: Writes saved locations as Points or the recent history as a trail

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/skycast/internal/geojson"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Aliases: []string{"e"},
	Short:   "Export locations as GeoJSON",
	Long: `Export saved or recent locations as GeoJSON.

Examples:
  skycast export
  skycast export --what recent
  skycast export --output places.geojson`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		what, _ := cmd.Flags().GetString("what")

		var fc *geojson.FeatureCollection
		switch what {
		case "saved":
			fc = geojson.SavedPoints(app.Resolver.Saved())
		case "recent":
			fc = geojson.RecentTrail(app.Resolver.Recent())
		default:
			return fmt.Errorf("unsupported selection: %s (use 'saved' or 'recent')", what)
		}

		data, err := fc.ToJSONIndent()
		if err != nil {
			return fmt.Errorf("failed to encode geojson: %w", err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		if err := os.WriteFile(output, append(data, '\n'), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d features to %s\n", len(fc.Features), output)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("what", "saved", "what to export (saved or recent)")
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
