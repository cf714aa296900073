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
	defaultClient = New(DefaultTimeout)
}

// Default returns the shared tuned HTTP client used by the platform lookups
// and the materializer.
func Default() *http.Client {
	return defaultClient
}

// New returns a client with its own pooled transport that decodes brotli and
// gzip response bodies. timeout <= 0 means no overall timeout; requests are
// then bounded only by their context.
func New(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &decodingTransport{base: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: MaxIdleConnsPerHost,
			IdleConnTimeout:     DefaultIdleConnTimeout,
		}},
	}
}
