// ABOUTME: Backup and restore commands
// ABOUTME: Writes resolver state to a YAML file and loads it back into the configured stores

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/skycast/internal/persist"
)

var backupCmd = noResolver(&cobra.Command{
	Use:   "backup",
	Short: "Create a YAML backup of saved, default, and recent locations",
	Long: `Create a YAML backup of your locations.

The backup file can be used to move your places to another machine
or to restore them after data loss.

Examples:
  skycast backup --output places.yaml
  skycast backup -o ~/backups/skycast-$(date +%Y%m%d).yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		store, closeStores, err := openPersist()
		if err != nil {
			return err
		}
		defer closeStores()

		st := store.Load(ctxOf(cmd))
		data, err := persist.ExportBackup(st, time.Now())
		if err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}

		if output == "" {
			output = fmt.Sprintf("skycast-%s.yaml", time.Now().Format("20060102-150405"))
		}
		if err := os.WriteFile(output, data, 0600); err != nil {
			return fmt.Errorf("failed to write backup: %w", err)
		}

		out := cmd.OutOrStdout()
		_, _ = color.New(color.FgGreen).Fprintf(out, "Backup created: %s\n", output)
		_, _ = fmt.Fprintf(out, "  %d saved, %d recent\n", len(st.Saved), len(st.Recent))
		return nil
	},
})

var restoreYes bool

var restoreCmd = noResolver(&cobra.Command{
	Use:   "restore <file>",
	Short: "Replace your locations with a YAML backup",
	Long: `Restore saved, default, and recent locations from a backup created
with 'skycast backup'.

WARNING: This replaces the current lists, it does not merge them.

Examples:
  skycast restore places.yaml
  skycast restore ~/backups/skycast-20241214.yaml --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		st, err := persist.ParseBackup(data)
		if err != nil {
			return fmt.Errorf("invalid backup: %w", err)
		}

		out := cmd.OutOrStdout()
		if !restoreYes {
			_, _ = fmt.Fprintf(out, "Replace your locations with '%s'? [y/N] ", filename)
			reader := bufio.NewReader(cmd.InOrStdin())
			answer, _ := reader.ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				_, _ = fmt.Fprintln(out, "Canceled.")
				return nil
			}
		}

		store, closeStores, err := openPersist()
		if err != nil {
			return err
		}
		defer closeStores()

		if err := store.Restore(ctxOf(cmd), st); err != nil {
			return fmt.Errorf("failed to restore: %w", err)
		}
		_, _ = color.New(color.FgGreen).Fprintln(out, "Restore complete")
		_, _ = fmt.Fprintf(out, "  %d saved, %d recent\n", len(st.Saved), len(st.Recent))
		return nil
	},
})

// openPersist opens the configured stores without starting a resolver.
func openPersist() (*persist.Store, func(), error) {
	durable, plain, err := cfg.OpenStores()
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	closeStores := func() {
		if err := durable.Close(); err != nil {
			logger.Warn("closing storage", "err", err)
		}
		if err := plain.Close(); err != nil {
			logger.Warn("closing legacy storage", "err", err)
		}
	}
	return persist.NewStore(durable, plain, logger), closeStores, nil
}

func init() {
	backupCmd.Flags().StringP("output", "o", "", "output file (default: skycast-YYYYMMDD-HHMMSS.yaml)")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}
