// Package config loads the console CLI configuration.
package config

import (
	"time"

	console "github.com/normaladmin/go-console-sdk"
)

const (
	DefaultPageURL  = "http://127.0.0.1:8080"
	DefaultListen   = "127.0.0.1:8090"
	DefaultAuthMode = "query"
)

// Config is the merged CLI configuration. Keys are snake_case in files and
// CONSOLE_ prefixed in the environment.
type Config struct {
	PageURL              string        `koanf:"page_url"`
	APIBasePath          string        `koanf:"api_base_path"`
	NotificationPath     string        `koanf:"notification_path"`
	AuthMode             string        `koanf:"auth_mode"`
	Username             string        `koanf:"username"`
	Password             string        `koanf:"password"`
	CredentialsFile      string        `koanf:"credentials_file"`
	Listen               string        `koanf:"listen"`
	ReconnectInterval    time.Duration `koanf:"reconnect_interval"`
	MaxReconnectAttempts int           `koanf:"max_reconnect_attempts"`
	RequestTimeout       time.Duration `koanf:"request_timeout"`
	Verbose              bool          `koanf:"verbose"`
}

// Options maps the configuration onto client options. The refresh token is
// persisted only when a credentials file is configured.
func (c *Config) Options(logger console.Logger) *console.Options {
	options := &console.Options{
		PageURL:              c.PageURL,
		APIBasePath:          c.APIBasePath,
		NotificationPath:     c.NotificationPath,
		AuthMode:             console.AuthMode(c.AuthMode),
		ReconnectInterval:    c.ReconnectInterval,
		MaxReconnectAttempts: c.MaxReconnectAttempts,
		RequestTimeout:       c.RequestTimeout,
		Logger:               logger,
	}
	if c.CredentialsFile != "" {
		options.TokenStore = &console.FileTokenStore{Path: c.CredentialsFile}
	}
	return options
}
