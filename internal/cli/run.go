package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raoulx24/zfs-autosnapd/internal/daemon"
	"github.com/raoulx24/zfs-autosnapd/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the snapshot daemon in the foreground",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireRoot(cfg); err != nil {
		return err
	}
	store, log := buildStore(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	d := daemon.New(store, cfg.Daemon, log)

	if err := d.StartReport(ctx, cfg.Daemon.ReportSchedule); err != nil {
		return err
	}

	if configPath != "" {
		go func() {
			if err := daemon.WatchConfig(ctx, configPath, d, log); err != nil {
				log.Error("config watch failed, hot reload disabled", "error", err)
			}
		}()
	}

	if cfg.HTTP.Enabled {
		srv := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: server.New(store, log, Version),
		}
		go func() {
			log.Info("http server listening", "addr", cfg.HTTP.Listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("daemon stopped: %w", err)
	}
	return nil
}
