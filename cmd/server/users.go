package main

import (
	"fmt"
	"os"

	"github.com/chemequip/backend/internal/auth"
	"github.com/chemequip/backend/internal/config"
	"github.com/spf13/cobra"
)

func newCreateDemoUserCmd(cfgFile *string) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-demo-user",
		Short: "Create or update a staff user for trying the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgFile)
			if err != nil {
				return err
			}
			logger := cfg.NewLogger(os.Stderr)

			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			created, err := auth.EnsureUser(cmd.Context(), store, username, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created demo user '%s'.\n", username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated password for '%s'.\n", username)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "demo", "username for the demo user")
	cmd.Flags().StringVar(&password, "password", "demo123", "password for the demo user (local development only)")
	return cmd
}
