// Package http provides preconfigured *http.Client constructors so every
// outbound caller in the PALD core shares one tuning surface instead of
// ad hoc http.Client{} literals scattered through the codebase.
package http

import (
	"crypto/tls"
	"net/http"
	"time"
)

// ClientConfig tunes an *http.Client and its underlying transport.
// NewClient does not read MaxRetries: the clients it builds make a single
// attempt per request.
type ClientConfig struct {
	Timeout                time.Duration
	MaxRetries              int
	DisableSSLVerification  bool
	MaxIdleConns            int
	IdleConnTimeout         time.Duration
	TLSHandshakeTimeout     time.Duration
	ResponseHeaderTimeout   time.Duration
}

// DefaultClientConfig returns the baseline configuration used when no
// consumer-specific preset applies.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:               30 * time.Second,
		MaxRetries:            3,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
}

// NewClient builds an *http.Client from config.
func NewClient(config ClientConfig) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          config.MaxIdleConns,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
	}
	if config.DisableSSLVerification {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

// NewClientWithTimeout builds a client from DefaultClientConfig with its
// timeout overridden.
func NewClientWithTimeout(timeout time.Duration) *http.Client {
	config := DefaultClientConfig()
	config.Timeout = timeout
	return NewClient(config)
}

// NewDefaultClient builds a client from DefaultClientConfig.
func NewDefaultClient() *http.Client {
	return NewClient(DefaultClientConfig())
}

// ProbeClientConfig tunes a client for readiness probes: the whole
// request must fit inside the per-check timeout, and a probe that cannot
// produce response headers in half that time is as good as down.
func ProbeClientConfig(timeout time.Duration) ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = timeout
	config.MaxRetries = 0
	config.ResponseHeaderTimeout = timeout / 2
	return config
}

// ConsentClientConfig tunes a client for consent-store lookups: a short
// timeout, since a stalled lookup blocks operation dispatch, and
// MaxRetries 1, which NewClient does not act on.
func ConsentClientConfig() ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = 10 * time.Second
	config.MaxRetries = 1
	return config
}
