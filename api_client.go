package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/matryer/try"

	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

var ErrUnauthorized = errors.New("request was not authorized")

// APIError is returned for any non-2xx response. Message is the server's
// error field when the body carried one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("api request failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// APIClient talks to the back-office REST API under Options.APIBasePath.
// It is the Router's MenuProvider and the only writer of session credentials
// besides Logout.
type APIClient struct {
	cfg     *HTTPConfiguration
	options *Options
	session *Session
}

func NewAPIClient(session *Session, options *Options) (*APIClient, error) {
	if session == nil {
		return nil, fmt.Errorf("APIClient - session cannot be nil")
	}
	if options == nil {
		options = &Options{}
	}
	options.CheckDefaults()
	cfg, err := NewConfiguration(options)
	if err != nil {
		return nil, err
	}
	return &APIClient{cfg: cfg, options: options, session: session}, nil
}

func (c *APIClient) Config() *HTTPConfiguration {
	return c.cfg
}

// GetRoleMenus fetches the menu entries and permissions of the signed-in user.
func (c *APIClient) GetRoleMenus(ctx context.Context) (*api.AuthMenus, error) {
	var envelope api.ResponseEnvelope[api.AuthMenus]
	if err := c.do(ctx, http.MethodGet, "/authmenus", nil, true, &envelope); err != nil {
		return nil, err
	}
	menus := envelope.Data
	if err := validateAuthMenus(&menus); err != nil {
		return nil, err
	}
	return &menus, nil
}

// Login exchanges a username and password for a credential and stores it in
// the session.
func (c *APIClient) Login(ctx context.Context, username, password string) (*api.LoginResponse, error) {
	req := api.LoginRequest{Username: username, Password: password}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid login request: %w", err)
	}
	var envelope api.ResponseEnvelope[api.LoginResponse]
	if err := c.do(ctx, http.MethodPost, "/login", req, false, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data.AccessToken == "" {
		return nil, fmt.Errorf("login response did not include a token")
	}
	if err := c.storeCredential(envelope.Data.Credential); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// RefreshToken trades the session's refresh token for a new credential.
func (c *APIClient) RefreshToken(ctx context.Context) (*api.Credential, error) {
	refreshToken := c.session.RefreshToken()
	if refreshToken == "" {
		return nil, ErrNoCredential
	}
	var envelope api.ResponseEnvelope[api.LoginResponse]
	err := c.do(ctx, http.MethodPost, "/refresh-token", api.RefreshTokenRequest{RefreshToken: refreshToken}, false, &envelope)
	if err != nil {
		return nil, err
	}
	if envelope.Data.AccessToken == "" {
		return nil, fmt.Errorf("refresh response did not include a token")
	}
	if err := c.storeCredential(envelope.Data.Credential); err != nil {
		return nil, err
	}
	return &envelope.Data.Credential, nil
}

func (c *APIClient) storeCredential(credential api.Credential) error {
	if err := c.session.SetToken(credential.AccessToken, credential.RefreshToken); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	publishClientEvent(c.options.ClientEventHandler, api.ClientEvent{
		EventType: api.ClientEventType_CredentialsUpdated,
		EventData: "Credential updated",
		Status:    "success",
	})
	return nil
}

// do sends one request and decodes the response envelope into out. An
// authenticated request answered with 401 is retried once after a successful
// token refresh.
func (c *APIClient) do(ctx context.Context, method, path string, body interface{}, authenticated bool, out interface{}) error {
	var responseBody []byte

	// This retrying lib works by retrying as long as the bool is true and err is not nil
	// the attempt param is auto-incremented
	err := try.Do(func(attempt int) (bool, error) {
		req, err := c.prepareRequest(ctx, method, path, body, authenticated)
		// Don't retry if theres an error preparing the request
		if err != nil {
			return false, err
		}

		resp, err := c.cfg.HTTPClient.Do(req)
		if err != nil {
			return false, err
		}
		responseBody, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return false, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return false, nil
		}
		apiErr := c.handleError(resp, responseBody)
		if resp.StatusCode != http.StatusUnauthorized || !authenticated || attempt > 1 {
			return false, apiErr
		}
		if c.session.RefreshToken() == "" {
			return false, apiErr
		}
		util.Infof("Access token rejected for %s %s, refreshing", method, path)
		if _, refreshErr := c.RefreshToken(ctx); refreshErr != nil {
			util.Warnf("Failed to refresh token: %v", refreshErr)
			return false, apiErr
		}
		return true, apiErr
	})
	if err != nil {
		return err
	}
	if out == nil || len(responseBody) == 0 {
		return nil
	}
	if err := util.Decode(responseBody, out, util.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *APIClient) prepareRequest(ctx context.Context, method, path string, body interface{}, authenticated bool) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := util.Encode(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BasePath+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	for header, value := range c.cfg.DefaultHeader {
		req.Header.Set(header, value)
	}
	if authenticated {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *APIClient) handleError(r *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: r.StatusCode}
	var envelope api.ResponseEnvelope[interface{}]
	if err := util.Decode(body, &envelope, util.DefaultConfig()); err == nil {
		apiErr.Message = envelope.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(r.StatusCode)
	}
	return apiErr
}
