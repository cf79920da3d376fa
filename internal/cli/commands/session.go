package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLoginCommand signs in and persists the refresh token.
func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the refresh token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cfg, _, err := newClient(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if cfg.Username == "" || cfg.Password == "" {
				return errors.New("--username and --password are required")
			}
			resp, err := client.Login(cmd.Context(), cfg.Username, cfg.Password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			name := cfg.Username
			if resp.User != nil && resp.User.Username != "" {
				name = resp.User.Username
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", name)
			if cfg.CredentialsFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Refresh token stored in %s\n", cfg.CredentialsFile)
			}
			return nil
		},
	}
}

// NewLogoutCommand forgets the persisted refresh token.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored refresh token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, _, err := newClient(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := client.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
