// Package http builds the pooled HTTP clients used for service-to-service calls.
package http

import (
	"net/http"
	"time"
)

// Defaults for NewClient.
const (
	DefaultTimeout               = 10 * time.Second
	DefaultMaxIdleConns          = 100
	DefaultMaxIdleConnsPerHost   = 10
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultExpectContinueTimeout = 1 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
)

// ClientConfig configures an HTTP client. Zero values fall back to defaults.
type ClientConfig struct {
	// Timeout bounds the whole exchange, body read included.
	Timeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration

	// Transport replaces the pooled transport. Tests use it to inject
	// round-trippers.
	Transport http.RoundTripper
}

// NewClient creates an HTTP client with a pooled transport. If cfg is nil,
// default values are used.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	timeout := valueOr(cfg.Timeout, DefaultTimeout)

	if cfg.Transport != nil {
		return &http.Client{Timeout: timeout, Transport: cfg.Transport}
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          valueOr(cfg.MaxIdleConns, DefaultMaxIdleConns),
		MaxIdleConnsPerHost:   valueOr(cfg.MaxIdleConnsPerHost, DefaultMaxIdleConnsPerHost),
		IdleConnTimeout:       valueOr(cfg.IdleConnTimeout, DefaultIdleConnTimeout),
		ExpectContinueTimeout: DefaultExpectContinueTimeout,
		TLSHandshakeTimeout:   valueOr(cfg.TLSHandshakeTimeout, DefaultTLSHandshakeTimeout),
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func valueOr[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}
