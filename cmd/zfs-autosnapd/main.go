package main

import (
	"os"

	"github.com/raoulx24/zfs-autosnapd/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
