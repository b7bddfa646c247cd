// Package rest provides the authenticated edgeX REST client. Every request
// leaving this client is signed transparently by an http.RoundTripper;
// endpoint methods never touch signing.
package rest

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/edgex-exchange/edgex-sdk-go/pkg/signing"
)

// Client provides access to the edgeX REST API.
type Client struct {
	baseURL    string
	accountID  int64
	httpClient *http.Client
	logger     *zap.Logger

	signer signing.Signer
	key    signing.PrivateKey

	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a REST client. The account's key signs every request
// through the client's transport; endpoints opt out of nothing.
func NewClient(baseURL string, accountID int64, key signing.PrivateKey, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		accountID:    accountID,
		key:          key,
		signer:       signing.LocalSigner{},
		logger:       zap.NewNop(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.timeout > 0 {
		c.httpClient.Timeout = c.timeout
	}
	// Wrap whatever transport is configured so signing runs after every
	// upstream mutation of the request and exactly once per attempt.
	c.httpClient.Transport = newAuthTransport(c.httpClient.Transport, c.signer, c.key)

	return c
}

// WithTimeout sets the HTTP client timeout. It applies regardless of
// option order, including over a client supplied via WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetries sets the retry configuration for retryable HTTP failures.
func WithRetries(max int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSigner replaces the default in-memory signer.
func WithSigner(s signing.Signer) Option {
	return func(c *Client) {
		c.signer = s
	}
}

// WithHTTPClient sets a custom HTTP client. The client is copied before
// its transport is wrapped by the signing transport, so the caller's
// object is never mutated.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.httpClient = &cp
	}
}

// AccountID returns the account this client signs for.
func (c *Client) AccountID() int64 {
	return c.accountID
}
