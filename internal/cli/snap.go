package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/zfs-autosnapd/internal/daemon"
)

var snapCmd = &cobra.Command{
	Use:   "snap",
	Short: "Snapshot every dataset whose policy is due, then exit",
	RunE:  runSnap,
}

func runSnap(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireRoot(cfg); err != nil {
		return err
	}
	store, log := buildStore(cfg)

	datasets, err := store.Datasets(cmd.Context())
	if err != nil {
		return err
	}
	return daemon.SnapDue(cmd.Context(), store, datasets, log, time.Now())
}
