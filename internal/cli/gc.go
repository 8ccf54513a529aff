package cli

import (
	"github.com/spf13/cobra"

	"github.com/raoulx24/zfs-autosnapd/internal/daemon"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Destroy every snapshot no retention rule wants, then exit",
	RunE:  runGC,
}

func runGC(cmd *cobra.Command, args []string) error {
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
	return daemon.Prune(cmd.Context(), store, datasets, log)
}
