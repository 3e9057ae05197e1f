// Package httpclient is the single outbound HTTP surface of the monitor.
//
//   - one shared tuned *http.Client (connection pooling across sources)
//   - Get: GET with timeout, extra headers, status interpretation,
//     charset-lenient body decoding, transparent gzip/brotli
//   - per-host rate limiting so many sources on one host stay polite
package httpclient

import (
	"net/http"
	"time"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 16
)

var defaultClient *http.Client

func init() {
	defaultClient = &http.Client{
		Timeout: DefaultTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: MaxIdleConnsPerHost,
			IdleConnTimeout:     DefaultIdleConnTimeout,
			// Accept-Encoding is set explicitly in Get (gzip + br), so the
			// transport must not add its own and auto-decompress.
			DisableCompression: true,
		},
	}
}

// Default returns the shared tuned HTTP client for all source fetches.
func Default() *http.Client {
	return defaultClient
}

// WithTimeout returns a client with the given timeout and the same transport as Default.
func WithTimeout(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		return defaultClient
	}
	t, ok := defaultClient.Transport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: t,
	}
}
