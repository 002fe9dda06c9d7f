// ABOUTME: Migration command for copying location data between durable backends
// ABOUTME: Copies badger to charm or charm to badger with a non-empty target check

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/skycast/internal/config"
	"github.com/harper/skycast/internal/storage"
)

var migrateCmd = noResolver(&cobra.Command{
	Use:   "migrate",
	Short: "Copy location data to another storage backend",
	Long: `Copy saved, default, and recent locations from the configured backend to another one.

Does NOT update the config file; verify the migration then set "backend" in config.json.

Examples:
  skycast migrate --to charm
  skycast migrate --to badger --data-dir ~/skycast-badger
  skycast migrate --to badger --force`,
	RunE: runMigrate,
})

var (
	migrateTo      string
	migrateDataDir string
	migrateForce   bool
)

func init() {
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "target backend (badger or charm)")
	migrateCmd.Flags().StringVar(&migrateDataDir, "data-dir", "", "target badger directory (defaults to the configured one)")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "allow writing into a non-empty target directory")
	_ = migrateCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	sourceBackend := cfg.GetBackend()
	targetBackend := migrateTo

	if targetBackend != config.BackendBadger && targetBackend != config.BackendCharm {
		return fmt.Errorf("invalid target backend %q: must be %q or %q", targetBackend, config.BackendBadger, config.BackendCharm)
	}
	if sourceBackend == config.BackendMemory {
		return fmt.Errorf("the memory backend holds nothing to migrate")
	}
	if targetBackend == sourceBackend && migrateDataDir == "" {
		return fmt.Errorf("target backend %q is the same as the current backend", targetBackend)
	}

	targetDir := cfg.BadgerDir()
	if migrateDataDir != "" {
		targetDir = config.ExpandPath(migrateDataDir)
	}
	if targetBackend == config.BackendBadger {
		nonEmpty, err := storage.IsDirNonEmpty(targetDir)
		if err != nil {
			return fmt.Errorf("check target directory: %w", err)
		}
		if nonEmpty && !migrateForce {
			return fmt.Errorf("target directory %q is not empty; use --force to overwrite", targetDir)
		}
	}

	src, err := cfg.OpenDurable(sourceBackend)
	if err != nil {
		return fmt.Errorf("open source storage (%s): %w", sourceBackend, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: closing source storage: %v\n", cerr)
		}
	}()

	var dst storage.KeyValueStore
	if targetBackend == config.BackendBadger {
		dst, err = storage.NewBadgerStore(targetDir)
	} else {
		dst, err = cfg.OpenDurable(targetBackend)
	}
	if err != nil {
		return fmt.Errorf("open target storage (%s): %w", targetBackend, err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: closing target storage: %v\n", cerr)
		}
	}()

	out := cmd.OutOrStdout()
	_, _ = color.New(color.FgYellow).Fprintln(out, "Migrating location data:")
	_, _ = fmt.Fprintf(out, "  Source:  %s\n", sourceBackend)
	_, _ = fmt.Fprintf(out, "  Target:  %s\n", targetBackend)
	if targetBackend == config.BackendBadger {
		_, _ = fmt.Fprintf(out, "  Dir:     %s\n", targetDir)
	}
	_, _ = fmt.Fprintln(out)

	summary, err := storage.Copy(ctxOf(cmd), src, dst)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, _ = color.New(color.FgGreen).Fprintln(out, "Migration complete!")
	_, _ = fmt.Fprintf(out, "  Keys:  %d\n", summary.Keys)
	_, _ = fmt.Fprintf(out, "  Bytes: %d\n", summary.Bytes)
	_, _ = fmt.Fprintln(out)
	_, _ = color.New(color.FgYellow).Fprintln(out, "Note: config.json was NOT updated. To switch to the new backend, edit:")
	_, _ = fmt.Fprintf(out, "  %s\n", config.GetConfigPath())
	_, _ = fmt.Fprintf(out, "  Set \"backend\": %q\n", targetBackend)
	return nil
}
