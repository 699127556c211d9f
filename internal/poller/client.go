package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"fermentation-backend/config"
	"fermentation-backend/internal/parse"
)

// ErrFetchFailed covers network errors, non-2xx responses and undecodable feed bodies.
var ErrFetchFailed = errors.New("feed fetch failed")

const maxFeedBodyBytes = 4 << 20

// FeedResponse models the top-level structure of the telemetry feed.
type FeedResponse struct {
	Feeds []parse.FeedEntry `json:"feeds"`
}

// FeedFetcher retrieves the current window of feed entries from a tank's feed URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]parse.FeedEntry, error)
}

// HTTPFeedClient fetches feeds over HTTP. One limiter is shared by every batch
// so a tick over many tanks does not burst the upstream.
type HTTPFeedClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewFeedClient builds a client with the configured timeout, proxy and request rate.
func NewFeedClient(cfg config.PollerConfig) *HTTPFeedClient {
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warnf("invalid proxy URL %q: %v. Feed client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	limit := rate.Inf
	if cfg.MaxRequestsPerSec > 0 {
		limit = rate.Limit(cfg.MaxRequestsPerSec)
	}
	burst := int(cfg.MaxRequestsPerSec)
	if burst < 1 {
		burst = 1
	}

	return &HTTPFeedClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.FetchTimeout,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Fetch performs one GET against feedURL and decodes its feed entries in the
// order the upstream returned them.
func (c *HTTPFeedClient) Fetch(ctx context.Context, feedURL string) ([]parse.FeedEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request failed: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: received status code %d", ErrFetchFailed, resp.StatusCode)
	}

	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBodyBytes))
	decoder.UseNumber()

	var feed FeedResponse
	if err := decoder.Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode feed: %v", ErrFetchFailed, err)
	}
	return feed.Feeds, nil
}
