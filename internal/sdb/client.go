package sdb

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Environment selects a catalog deployment.
type Environment string

const (
	Prod  Environment = "prod"
	Stage Environment = "stage"
	Demo  Environment = "demo"
)

// BaseURL returns the editor API root for the environment. The demo catalog
// shares the prod deployment.
func (e Environment) BaseURL() string {
	env := e
	if env == Demo {
		env = Prod
	}
	return fmt.Sprintf("http://symboldb.%s.zorg.sh/symboldb-editor/api/v1.0", env)
}

// Client provides access to the SymbolDB REST API.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a catalog client for the given environment.
func NewClient(env Environment, sessionID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   env.BaseURL(),
		sessionID: sessionID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithBaseURL overrides the environment-derived base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
