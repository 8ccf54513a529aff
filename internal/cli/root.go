// Package cli wires the cobra command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raoulx24/zfs-autosnapd/internal/config"
	"github.com/raoulx24/zfs-autosnapd/internal/logging"
	"github.com/raoulx24/zfs-autosnapd/internal/zfs"
)

var (
	configPath string
	sandbox    bool
)

var rootCmd = &cobra.Command{
	Use:   "zfs-autosnapd",
	Short: "Automatic ZFS snapshots with multi-tier retention",
	Long: `zfs-autosnapd takes periodic snapshots of every dataset carrying the
` + zfs.Property + ` user property and prunes them according to that
property's retention rules.

Tips:
  use 'zfs-autosnapd setup' to configure a dataset interactively
  use 'zfs set ` + zfs.Property + `=15m8:1h48:1d14 pool/dataset' to do it by hand
  use 'zfs set ` + zfs.Property + `=- pool/dataset@snap' to keep one snapshot forever`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&sandbox, "sandbox", false, "describe mutating actions instead of executing them")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(snapCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig merges the file config with the global sandbox flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if sandbox {
		cfg.Sandbox = true
	}
	return cfg, nil
}

// buildStore returns the zfs-backed store, wrapped in the sandbox when
// dry-run is on, plus the configured logger.
func buildStore(cfg *config.Config) (zfs.Store, *slog.Logger) {
	log := logging.Setup(cfg.Logging, os.Stderr)
	var store zfs.Store = zfs.NewCLI()
	if cfg.Sandbox {
		store = zfs.NewSandbox(store, log)
	}
	return store, log
}

// requireRoot guards the commands that mutate the pool. The sandbox
// never mutates, so it is exempt.
func requireRoot(cfg *config.Config) error {
	if cfg.Sandbox {
		return nil
	}
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command changes the pool and needs root privileges (re-run with sudo, or pass --sandbox)")
	}
	return nil
}
