package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize taskstore storage",
		Long: "Create the configuration and data directories, write a default config.yaml,\n" +
			"and create or migrate the database.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.storeConfig()
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Store) error {
				version, err := s.SchemaVersion()
				if err != nil {
					return err
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"config":         filepath.Join(a.configDir, configFileExt),
						"database":       cfg.DBPath(),
						"schema_version": version,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "config:   %s\n", filepath.Join(a.configDir, configFileExt))
				fmt.Fprintf(out, "database: %s (schema v%d)\n", cfg.DBPath(), version)
				return nil
			})
		},
	}
}
