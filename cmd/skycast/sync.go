// ABOUTME: Sync subcommand for the Charm backend
// ABOUTME: Status, link, unlink, manual sync, and reset from cloud

package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/charm/client"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/skycast/internal/charm"
	"github.com/harper/skycast/internal/config"
)

var syncCmd = noResolver(&cobra.Command{
	Use:   "sync",
	Short: "Manage cloud sync for the charm backend",
	Long: `Sync saved, default, and recent locations across devices with Charm.

Requires "backend": "charm" in config.json (or SKYCAST_BACKEND=charm).
Writes sync automatically; use 'sync now' to pull changes from other devices.

Examples:
  skycast sync status
  skycast sync link
  skycast sync now
  skycast sync reset`,
})

var syncStatusCmd = noResolver(&cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Backend:    %s\n", cfg.GetBackend())
		_, _ = fmt.Fprintf(out, "Charm Host: %s\n", charmConfig().CharmHost)
		_, _ = fmt.Fprintf(out, "Database:   %s\n", charm.DBName)

		if cfg.GetBackend() != config.BackendCharm {
			_, _ = color.New(color.FgYellow).Fprintln(out, "\nSync is off: the configured backend is not charm.")
			return nil
		}

		cc, err := client.NewClientWithDefaults()
		if err != nil {
			_, _ = color.New(color.FgYellow).Fprintln(out, "\nStatus: Not connected")
			_, _ = fmt.Fprintln(out, "Run 'skycast sync link' to connect your account.")
			return nil
		}
		user, err := cc.ID()
		if err != nil {
			_, _ = color.New(color.FgYellow).Fprintln(out, "\nStatus: Not linked")
			_, _ = fmt.Fprintln(out, "Run 'skycast sync link' to connect your account.")
			return nil
		}

		_, _ = fmt.Fprintf(out, "\nUser ID: %s\n", user)
		_, _ = color.New(color.FgGreen).Fprintln(out, "Status: Connected")
		return nil
	},
})

var syncLinkCmd = noResolver(&cobra.Command{
	Use:   "link",
	Short: "Link this device to your Charm account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCharm(cmd, "link", "✓ Device linked. Locations will sync automatically.")
	},
})

var syncUnlinkCmd = noResolver(&cobra.Command{
	Use:   "unlink",
	Short: "Unlink this device from your Charm account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCharm(cmd, "unlink", "✓ Device unlinked. Local data is preserved.")
	},
})

var syncNowCmd = noResolver(&cobra.Command{
	Use:   "now",
	Short: "Sync with the Charm server now",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := charm.NewStore(charmConfig())
		if err != nil {
			return err
		}
		if err := store.Sync(); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		_, _ = color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ Synced")
		return nil
	},
})

var syncResetYes bool

var syncResetCmd = noResolver(&cobra.Command{
	Use:   "reset",
	Short: "Reset local data from the cloud",
	Long: `Delete the local copy and pull fresh data from Charm.

WARNING: Any local changes not yet synced will be lost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !syncResetYes {
			_, _ = color.New(color.FgYellow).Fprintln(out, "This discards unsynced local changes.")
			_, _ = fmt.Fprint(out, "Continue? (y/N): ")

			reader := bufio.NewReader(cmd.InOrStdin())
			answer, _ := reader.ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				_, _ = fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		store, err := charm.NewStore(charmConfig())
		if err != nil {
			return err
		}
		if err := store.Reset(); err != nil {
			return fmt.Errorf("failed to reset: %w", err)
		}
		_, _ = color.New(color.FgGreen).Fprintln(out, "✓ Local data reset from cloud")
		return nil
	},
})

func charmConfig() *charm.Config {
	c := charm.DefaultConfig()
	if cfg.CharmHost != "" {
		c.CharmHost = cfg.CharmHost
	}
	return c
}

func runCharm(cmd *cobra.Command, sub, success string) error {
	c := exec.Command("charm", sub) //nolint:gosec // fixed subcommand names
	c.Stdin = os.Stdin
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()
	if err := c.Run(); err != nil {
		return fmt.Errorf("failed to run 'charm %s': %w\nMake sure the charm CLI is installed: go install github.com/charmbracelet/charm@latest", sub, err)
	}
	_, _ = color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), success)
	return nil
}

func init() {
	syncResetCmd.Flags().BoolVarP(&syncResetYes, "yes", "y", false, "skip the confirmation prompt")

	syncCmd.AddCommand(syncStatusCmd, syncLinkCmd, syncUnlinkCmd, syncNowCmd, syncResetCmd)
	rootCmd.AddCommand(syncCmd)
}
