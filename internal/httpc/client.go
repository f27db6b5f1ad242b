// Package httpc provides HTTP clients with sensible defaults.
// Use this instead of http.DefaultClient to ensure timeouts are set.
package httpc

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultConnectTimeout  = 2 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// UserAgent is sent with every backend request.
var UserAgent = "go-hal/0.1"

// RequestIDHeader carries a per-request UUID so backend logs can be correlated.
const RequestIDHeader = "X-Request-ID"

// transport is shared so the poller and the frame fetcher reuse connections
// to the backend.
var transport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   DefaultConnectTimeout,
		KeepAlive: DefaultKeepAlive,
	}).DialContext,
	MaxIdleConns:          16,
	MaxIdleConnsPerHost:   4,
	IdleConnTimeout:       DefaultIdleConnTimeout,
	TLSHandshakeTimeout:   5 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// Client is a shared HTTP client with production-ready defaults.
var Client = &http.Client{
	Timeout:   DefaultTimeout,
	Transport: transport,
}

// NewClient creates a client with the given overall request timeout.
// The timeout bounds connect, headers and body read together.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// NewRequest builds a GET request tagged with the user agent and a fresh
// request ID.
func NewRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}

// Get performs a tagged GET with the given client (Client if nil).
func Get(ctx context.Context, c *http.Client, url string) (*http.Response, error) {
	if c == nil {
		c = Client
	}
	req, err := NewRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}
