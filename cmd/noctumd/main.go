// Package main implements noctumd, the repository-analysis daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "noctumd",
		Short:   "Idle-window source repository analysis daemon",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "noctumd.toml", "Path to noctumd's process config file")

	rootCmd.AddCommand(newRunCmd(&configPath))
	rootCmd.AddCommand(newTriggerCmd(&configPath))
	rootCmd.AddCommand(newStopCmd(&configPath))
	rootCmd.AddCommand(newStatusCmd(&configPath))
	rootCmd.AddCommand(newRepoCmd(&configPath))

	return rootCmd.Execute()
}
