package providers

import (
	"net"
	"net/http"
	"time"

	"cinema-agent/logger"

	"github.com/hashicorp/go-retryablehttp"
)

// TransportConfig mirrors the network knobs handed to the model client.
type TransportConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// MaxAttempts bounds the total number of attempts per request, first try included.
	MaxAttempts int
	// BaseDelay is the first backoff delay (default 500ms).
	BaseDelay time.Duration
	// MaxDelay caps a single backoff delay (default 20s).
	MaxDelay time.Duration
}

// NewHTTPClient returns an http.Client whose transport applies the connect and
// read timeouts and retries transient failures up to MaxAttempts times.
func NewHTTPClient(cfg TransportConfig) *http.Client {
	return NewRetryClient(cfg).StandardClient()
}

// NewRetryClient builds the retrying client behind NewHTTPClient. Network
// errors, 429 and 5xx responses are retried with exponential backoff that
// honours Retry-After. Once attempts run out the last response is returned
// as is, so the provider SDK reports the real status.
func NewRetryClient(cfg TransportConfig) *retryablehttp.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ConnectTimeout > 0 {
		base.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}).DialContext
		base.TLSHandshakeTimeout = cfg.ConnectTimeout
	}
	if cfg.ReadTimeout > 0 {
		base.ResponseHeaderTimeout = cfg.ReadTimeout
	}

	c := retryablehttp.NewClient()
	c.HTTPClient = &http.Client{Transport: base}
	c.Logger = logger.Named("llm-http")
	c.RetryMax = max(cfg.MaxAttempts, 1) - 1
	c.RetryWaitMin = cfg.BaseDelay
	if c.RetryWaitMin <= 0 {
		c.RetryWaitMin = 500 * time.Millisecond
	}
	c.RetryWaitMax = cfg.MaxDelay
	if c.RetryWaitMax <= 0 {
		c.RetryWaitMax = 20 * time.Second
	}
	c.CheckRetry = retryablehttp.DefaultRetryPolicy
	c.Backoff = retryablehttp.DefaultBackoff
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}
