package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/storybot/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultRequestBudget     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRedialAttempts    = 2
	defaultRedialBackoff     = 500 * time.Millisecond
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls. The
// client timeout is widened by longPoll so getUpdates is not cut short.
func BuildHTTPClient(longPoll time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if longPoll <= 0 {
		longPoll = defaultLongPollSeconds * time.Second
	}
	return &http.Client{
		Timeout: longPoll + defaultRequestBudget,
		Transport: &redialTransport{
			base:       transport,
			maxRetries: defaultRedialAttempts,
			backoff:    defaultRedialBackoff,
		},
	}
}

// redialTransport repeats a request only when the connection was never
// established, so a Bot API call is never delivered twice.
type redialTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *redialTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		currReq := req
		if attempt > 1 {
			currReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				currReq.Body = body
			} else if req.Body != nil && req.Body != http.NoBody {
				return nil, lastErr
			}
		}

		resp, err := base.RoundTrip(currReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRedial(err) || attempt == attempts {
			break
		}

		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}
