package cli

import (
	"github.com/spf13/cobra"

	"github.com/raoulx24/zfs-autosnapd/internal/wizard"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively configure retention for a dataset",
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireRoot(cfg); err != nil {
		return err
	}
	store, _ := buildStore(cfg)

	return wizard.Run(cmd.Context(), store)
}
