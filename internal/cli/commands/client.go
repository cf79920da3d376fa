package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	console "github.com/normaladmin/go-console-sdk"
	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/internal/cli/config"
)

// newClient builds a console client from the loaded configuration. events may be nil.
func newClient(ctx context.Context, events chan api.ClientEvent) (*console.Client, *config.Config, *slog.Logger, error) {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := config.GetLogger(ctx)
	options := cfg.Options(slogLogger{logger: logger})
	options.ClientEventHandler = events
	client, err := console.NewClient(options)
	if err != nil {
		return nil, nil, nil, err
	}
	return client, cfg, logger, nil
}

// signIn restores the session from the persisted refresh token, falling back
// to the configured username and password.
func signIn(ctx context.Context, client *console.Client, cfg *config.Config, logger *slog.Logger) error {
	if client.Session.RefreshToken() != "" {
		err := client.Restore(ctx)
		if err == nil {
			logger.Debug("session restored from refresh token")
			return nil
		}
		logger.Warn("stored refresh token rejected", "error", err)
		if clearErr := client.Session.ClearAuth(); clearErr != nil {
			return clearErr
		}
	}
	if cfg.Username == "" || cfg.Password == "" {
		return errors.New("not signed in: run `console login` or pass --username and --password")
	}
	resp, err := client.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if resp.User != nil {
		logger.Info("signed in", "user", resp.User.Username)
	}
	return nil
}
