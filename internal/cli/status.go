package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/zfs-autosnapd/internal/status"
)

var statusVerbose bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show managed datasets and pending snapshot removals",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "per-snapshot detail")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, _ := buildStore(cfg)

	datasets, err := store.Datasets(cmd.Context())
	if err != nil {
		return err
	}
	status.Write(os.Stdout, datasets, time.Now(), statusVerbose)
	return nil
}
