package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/time/rate"

	"github.com/pthm/hxnav/lib/port"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 16 << 20

// Fetcher performs HTTP requests for a session, throttled by a token bucket.
type Fetcher struct {
	client    *http.Client
	owned     bool
	limiter   *rate.Limiter
	userAgent string
}

// NewFetcher creates a fetcher. A nil client gets a cookie jar and the
// configured timeout; requestsPerSecond <= 0 disables throttling.
func NewFetcher(client *http.Client, cfg Config) *Fetcher {
	owned := client == nil
	if owned {
		jar, _ := cookiejar.New(nil)
		client = &http.Client{Jar: jar, Timeout: cfg.Timeout}
	}
	f := &Fetcher{client: client, owned: owned, userAgent: cfg.UserAgent}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return f
}

// Do sends req and reads the whole response.
func (f *Fetcher) Do(ctx context.Context, req *http.Request) (*port.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("browser: rate limit: %w", err)
		}
	}

	req = req.WithContext(ctx)
	if f.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("browser: %s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("browser: read %s: %w", req.URL, err)
	}

	finalURL := req.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &port.Response{
		URL:    finalURL,
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

// Close drops idle connections of a client the fetcher created itself.
func (f *Fetcher) Close() {
	if f.owned {
		f.client.CloseIdleConnections()
	}
}
