// Package httputil provides the upstream HTTP client shared by extractors and
// the proxy, plus URL validation and JSON helpers.
package httputil

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is used when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Options tunes the client returned by NewClient.
type Options struct {
	Timeout     time.Duration
	ProxyURL    string
	Impersonate bool
}

// NewClient creates a hardened HTTP client. With Impersonate set, TLS
// connections present a Chrome ClientHello.
func NewClient(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if opts.Impersonate {
		if opts.ProxyURL != "" {
			return nil, errors.New("proxy_url cannot be combined with impersonate")
		}
		return &http.Client{
			Timeout:   timeout,
			Transport: newImpersonatingTransport(timeout),
		}, nil
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        20,
		IdleConnTimeout:     30 * time.Second,
		MaxIdleConnsPerHost: 5,
	}
	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

// ValidateURL checks that rawURL is absolute and uses http or https.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("only http and https URLs are allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("URL has no host")
	}
	return u, nil
}
