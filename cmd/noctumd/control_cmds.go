package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noctum/noctum/config"
	"github.com/noctum/noctum/control"
)

const controlCallTimeout = 5 * time.Second

func newTriggerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Request an out-of-schedule processing cycle on the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newControlClient(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), controlCallTimeout)
			defer cancel()
			if err := client.TriggerNow(ctx); err != nil {
				return err
			}
			fmt.Println("triggered")
			return nil
		},
	}
}

func newStopCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Request the running daemon shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newControlClient(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), controlCallTimeout)
			defer cancel()
			if err := client.Stop(ctx); err != nil {
				return err
			}
			fmt.Println("stop requested")
			return nil
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the running daemon's current state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newControlClient(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), controlCallTimeout)
			defer cancel()
			status, err := client.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Println(status)
			return nil
		},
	}
}

func newControlClient(configPath string) (*control.Client, error) {
	cfg, err := config.LoadProcessConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load process config: %w", err)
	}
	return control.NewClient(cfg.SocketPath), nil
}
