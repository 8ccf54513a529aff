package cli

import (
	"github.com/spf13/cobra"

	"github.com/raoulx24/zfs-autosnapd/internal/svc"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the daemon as a system service started on boot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := requireRoot(cfg); err != nil {
			return err
		}
		if cfg.Sandbox {
			cmd.Println("sandbox: would install the zfs-autosnapd service")
			return nil
		}
		return svc.Install(configPath)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the system service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := requireRoot(cfg); err != nil {
			return err
		}
		if cfg.Sandbox {
			cmd.Println("sandbox: would remove the zfs-autosnapd service")
			return nil
		}
		return svc.Remove()
	},
}
