package console

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

const VERSION = "1.2.0"

// use a single instance of Validate, it caches struct info
var validate = validator.New()

type AuthMode string

const (
	// AuthModeQuery sends the access token as the token query parameter of the upgrade request.
	AuthModeQuery AuthMode = "query"
	// AuthModeFrame sends {"type":"auth","token":...} as the first frame after open.
	AuthModeFrame AuthMode = "frame"
)

type AdvancedOptions struct {
	Dialer     Dialer
	Scheduler  Scheduler
	TokenStore TokenStore
	HTTPClient *http.Client
}

type Options struct {
	// PageURL is the origin the console is served from. The notification URL mirrors its scheme and host.
	PageURL              string        `json:"pageURL,omitempty" validate:"omitempty,url"`
	APIBasePath          string        `json:"apiBasePath,omitempty" validate:"omitempty,url"`
	NotificationPath     string        `json:"notificationPath,omitempty" validate:"omitempty,startswith=/"`
	AuthMode             AuthMode      `json:"authMode,omitempty" validate:"omitempty,oneof=query frame"`
	ReconnectInterval    time.Duration `json:"reconnectInterval,omitempty"`
	MaxReconnectAttempts int           `json:"maxReconnectAttempts,omitempty" validate:"gte=0"`
	WriteTimeout         time.Duration `json:"writeTimeout,omitempty"`
	RequestTimeout       time.Duration `json:"requestTimeout,omitempty"`
	LoginPath            string        `json:"loginPath,omitempty" validate:"omitempty,startswith=/"`
	LayoutPath           string        `json:"layoutPath,omitempty" validate:"omitempty,startswith=/"`
	HomePath             string        `json:"homePath,omitempty" validate:"omitempty,startswith=/"`
	ClientEventHandler   chan api.ClientEvent
	Logger               util.Logger
	NavigationHooks      []*NavigationHook
	AdvancedOptions
}

func (o *Options) CheckDefaults() {
	if o.PageURL == "" {
		o.PageURL = "http://127.0.0.1:8080"
	}
	o.PageURL = strings.TrimSuffix(o.PageURL, "/")
	if o.APIBasePath == "" {
		o.APIBasePath = o.PageURL + "/gam"
	}
	o.APIBasePath = strings.TrimSuffix(o.APIBasePath, "/")
	if o.NotificationPath == "" {
		o.NotificationPath = "/ws/notifications"
	}
	if o.AuthMode == "" {
		o.AuthMode = AuthModeQuery
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = 3 * time.Second
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = 5
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	} else if o.RequestTimeout > time.Minute {
		util.Warnf("RequestTimeout cannot be longer than 1 minute. Defaulting to 10 seconds.")
		o.RequestTimeout = 10 * time.Second
	}
	if o.LoginPath == "" {
		o.LoginPath = "/login"
	}
	if o.LayoutPath == "" {
		o.LayoutPath = "/layout"
	}
	if o.HomePath == "" {
		o.HomePath = o.LayoutPath
	}
	if o.Scheduler == nil {
		o.Scheduler = timeScheduler{}
	}
	if o.Dialer == nil {
		o.Dialer = newWebsocketDialer(o.RequestTimeout)
	}
	if o.TokenStore == nil {
		o.TokenStore = &MemoryTokenStore{}
	}
}

func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// notificationURL derives ws(s)://<host><NotificationPath> from PageURL.
func (o *Options) notificationURL() (string, error) {
	page, err := url.Parse(o.PageURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	switch page.Scheme {
	case "https", "wss":
		scheme = "wss"
	case "http", "ws":
	default:
		return "", fmt.Errorf("unsupported page scheme %q", page.Scheme)
	}
	if page.Host == "" {
		return "", fmt.Errorf("page URL %q has no host", o.PageURL)
	}
	u := url.URL{Scheme: scheme, Host: page.Host, Path: o.NotificationPath}
	return u.String(), nil
}

type HTTPConfiguration struct {
	BasePath        string            `json:"basePath,omitempty"`
	NotificationURL string            `json:"notificationURL,omitempty"`
	DefaultHeader   map[string]string `json:"defaultHeader,omitempty"`
	UserAgent       string            `json:"userAgent,omitempty"`
	HTTPClient      *http.Client
}

func NewConfiguration(options *Options) (*HTTPConfiguration, error) {
	notificationURL, err := options.notificationURL()
	if err != nil {
		return nil, err
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			// Set an explicit timeout so that we don't wait forever on a request
			Timeout: options.RequestTimeout,
		}
	}
	cfg := &HTTPConfiguration{
		BasePath:        options.APIBasePath,
		NotificationURL: notificationURL,
		DefaultHeader:   map[string]string{"Content-Type": "application/json"},
		UserAgent:       "NormalAdmin-Console-SDK/" + VERSION + "/go",
		HTTPClient:      httpClient,
	}
	return cfg, nil
}

func (c *HTTPConfiguration) AddDefaultHeader(key string, value string) {
	c.DefaultHeader[key] = value
}

func publishClientEvent(ch chan api.ClientEvent, event api.ClientEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- event:
	default:
		util.Debugf("Client event channel full, dropping %s event", event.EventType)
	}
}
