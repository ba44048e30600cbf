package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/ArtemDzuba/bakery-bot/core/telegram/netutil"
)

// HTTPOptions tunes the client used for Bot API calls. Zero values select defaults.
type HTTPOptions struct {
	Timeout        time.Duration
	ResponseHeader time.Duration
	Retries        int
	Backoff        time.Duration
	// Base replaces the default transport, mostly for tests.
	Base http.RoundTripper
}

func (o *HTTPOptions) withDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.ResponseHeader <= 0 {
		// long polling holds the response open for the poll timeout
		o.ResponseHeader = 25 * time.Second
	}
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
}

// BuildHTTPClient returns an HTTP client that retries transient network failures.
func BuildHTTPClient(opts HTTPOptions) *http.Client {
	opts.withDefaults()
	base := opts.Base
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: opts.ResponseHeader,
			ExpectContinueTimeout: time.Second,
		}
	}
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &retryTransport{
			base:       base,
			maxRetries: opts.Retries,
			backoff:    opts.Backoff,
		},
	}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			if err := netutil.Sleep(req.Context(), t.backoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
		resp, err := t.base.RoundTrip(rewind(req, attempt))
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) {
			break
		}
	}
	return nil, lastErr
}

// rewind returns a request with a fresh body for retry attempts.
func rewind(req *http.Request, attempt int) *http.Request {
	if attempt == 0 || req.GetBody == nil {
		return req
	}
	clone := req.Clone(req.Context())
	if body, err := req.GetBody(); err == nil {
		clone.Body = body
	}
	return clone
}
