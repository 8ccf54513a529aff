// Package svc installs and removes the daemon as a system service
// (systemd, launchd or SCM, whichever the host runs).
package svc

import (
	"fmt"

	"github.com/kardianos/service"
)

func serviceConfig(configPath string) *service.Config {
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return &service.Config{
		Name:        "zfs-autosnapd",
		DisplayName: "ZFS automatic snapshots",
		Description: "Takes periodic ZFS snapshots and prunes them per retention policy.",
		Arguments:   args,
	}
}

// noop satisfies service.Interface for install/remove, which never start
// the program.
type noop struct{}

func (noop) Start(service.Service) error { return nil }
func (noop) Stop(service.Service) error  { return nil }

// Install registers the daemon with the system service manager, set to
// start on boot and run the "run" subcommand.
func Install(configPath string) error {
	s, err := service.New(noop{}, serviceConfig(configPath))
	if err != nil {
		return fmt.Errorf("preparing service: %w", err)
	}
	if err := s.Install(); err != nil {
		return fmt.Errorf("installing service: %w", err)
	}
	return nil
}

// Remove unregisters the daemon from the system service manager.
func Remove() error {
	s, err := service.New(noop{}, serviceConfig(""))
	if err != nil {
		return fmt.Errorf("preparing service: %w", err)
	}
	if err := s.Uninstall(); err != nil {
		return fmt.Errorf("removing service: %w", err)
	}
	return nil
}
