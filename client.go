package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

var ErrClientClosed = errors.New("client is closed")

// Client is the composition root of the console. It owns the session shared
// by the notification transport, the router and the REST client.
// In most cases there should be only one Client per signed-in operator.
type Client struct {
	Session   *Session
	Transport *Transport
	Router    *Router
	API       *APIClient
	Pages     *PageRegistry

	options *Options
	closed  atomic.Bool
}

// NewClient wires a Client from options. A refresh token persisted by the
// configured TokenStore is restored into the session.
func NewClient(options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	options.CheckDefaults()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if options.Logger != nil {
		util.SetLogger(options.Logger)
	}

	session, err := NewSession(options.TokenStore)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	apiClient, err := NewAPIClient(session, options)
	if err != nil {
		return nil, err
	}
	pages := NewPageRegistry()
	router, err := NewRouter(session, apiClient, pages, options)
	if err != nil {
		return nil, err
	}
	transport, err := NewTransport(session, options)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Session:   session,
		Transport: transport,
		Router:    router,
		API:       apiClient,
		Pages:     pages,
		options:   options,
	}
	util.Infof("Console client initialized for %s (transport %s)", options.PageURL, transport.Id())
	publishClientEvent(options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_Initialized,
		EventData: "Console client initialized",
		Status:    "success",
	})
	return c, nil
}

func (c *Client) Options() *Options {
	return c.options
}

// Login signs in and stores the credential in the session.
func (c *Client) Login(ctx context.Context, username, password string) (*api.LoginResponse, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.API.Login(ctx, username, password)
}

// Restore obtains a fresh access token from a persisted refresh token. It is
// a no-op when the session already has an access token.
func (c *Client) Restore(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if c.Session.Token() != "" {
		return nil
	}
	_, err := c.API.RefreshToken(ctx)
	return err
}

// Logout clears the credential and menu tree, drops the dynamic routes and
// closes the notification connection.
func (c *Client) Logout() error {
	c.Transport.Disconnect()
	c.Router.Reset()
	return c.Session.ClearAuth()
}

// Navigate runs the navigation guard for path.
func (c *Client) Navigate(ctx context.Context, path string) (*Navigation, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.Router.Navigate(ctx, path)
}

// Handler returns the console shell.
func (c *Client) Handler() http.Handler {
	return c.Router
}

// ConnectNotifications opens the notification channel with the session's access token.
func (c *Client) ConnectNotifications(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.Transport.Connect(ctx, c.Session.Token())
}

func (c *Client) On(messageType string, handler MessageHandler) DeregisterFunc {
	return c.Transport.On(messageType, handler)
}

func (c *Client) Send(v interface{}) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.Transport.Send(v)
}

// FeatureProvider exposes the session permissions as an OpenFeature provider.
func (c *Client) FeatureProvider() PermissionFeatureProvider {
	return PermissionFeatureProvider{Session: c.Session, Router: c.Router}
}

// Close disconnects the transport. The session is left intact so a persisted
// refresh token survives.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	c.Transport.Disconnect()
	util.Infof("Console client closed")
	return nil
}
