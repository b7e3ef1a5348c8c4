package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/noctum/noctum/config"
	"github.com/noctum/noctum/store"
)

func newRepoCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage tracked repositories",
	}
	cmd.AddCommand(newRepoAddCmd(configPath))
	cmd.AddCommand(newRepoListCmd(configPath))
	cmd.AddCommand(newRepoRemoveCmd(configPath))
	return cmd
}

func newRepoAddCmd(configPath *string) *cobra.Command {
	var name string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Start tracking a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if name == "" {
				name = filepath.Base(path)
			}

			st, err := openStoreFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			repo, err := st.AddRepository(path, name, !disabled)
			if err != nil {
				return fmt.Errorf("add repository: %w", err)
			}
			fmt.Printf("added %s (%s)\n", repo.Name, repo.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the directory's base name)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Add the repository but leave it disabled")
	return cmd
}

func newRepoListCmd(configPath *string) *cobra.Command {
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStoreFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			repos, err := st.ListRepositories(enabledOnly)
			if err != nil {
				return fmt.Errorf("list repositories: %w", err)
			}
			for _, r := range repos {
				status := "enabled"
				if !r.Enabled {
					status = "disabled"
				}
				fmt.Printf("%s\t%s\t%s\t%s\n", r.ID, r.Name, status, r.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&enabledOnly, "enabled-only", false, "Only list enabled repositories")
	return cmd
}

func newRepoRemoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Stop tracking a repository and delete its stored history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStoreFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteRepository(args[0]); err != nil {
				return fmt.Errorf("remove repository: %w", err)
			}
			fmt.Println("removed")
			return nil
		},
	}
}

func openStoreFromConfig(configPath string) (*store.Store, error) {
	cfg, err := config.LoadProcessConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load process config: %w", err)
	}
	return store.Open(cfg.DataDir, "noctum")
}
