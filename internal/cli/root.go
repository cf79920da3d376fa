// Package cli provides the command-line interface for the console.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	console "github.com/normaladmin/go-console-sdk"
	"github.com/normaladmin/go-console-sdk/internal/cli/commands"
	"github.com/normaladmin/go-console-sdk/internal/cli/config"
)

var cfgFile string

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "console",
		Short: "NormalAdmin console client",
		Long: `console signs in to a NormalAdmin backend, builds the role menu routes
and relays live notifications.`,
		Version: console.VERSION,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = config.WithConfig(ctx, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./console.yaml)")
	rootCmd.PersistentFlags().String("page-url", "", "Origin the console is served from")
	rootCmd.PersistentFlags().String("api-base-path", "", "REST base URL (default: <page-url>/gam)")
	rootCmd.PersistentFlags().String("notification-path", "", "Notification websocket path")
	rootCmd.PersistentFlags().String("auth-mode", "", "Notification auth mode (query|frame)")
	rootCmd.PersistentFlags().StringP("username", "u", "", "Operator username")
	rootCmd.PersistentFlags().StringP("password", "p", "", "Operator password")
	rootCmd.PersistentFlags().String("credentials-file", "", "File the refresh token is persisted to")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("auth-mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(console.AuthModeQuery), string(console.AuthModeFrame)}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewMenusCommand())
	rootCmd.AddCommand(commands.NewRoutesCommand())
	rootCmd.AddCommand(commands.NewServeCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
