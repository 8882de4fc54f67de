// Package keepa implements the HTTP client for the Keepa product-analytics
// API. All methods are context-aware, respect the shared rate limiter,
// collapse identical in-flight requests, and retry on transient errors
// (429, 5xx).
package keepa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.keepa.com/"
	maxRetries     = 4
)

// ErrNotFound is returned when Keepa has no entity for the requested ID.
var ErrNotFound = errors.New("not found")

// Client is the Keepa API HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	domain     int
	httpClient *http.Client
	limiter    *rate.Limiter
	group      singleflight.Group
	tokensLeft atomic.Int64
	debug      bool
}

// NewClient creates a Client for one Amazon marketplace (Keepa domain ID,
// 1 = amazon.com).
func NewClient(apiKey, baseURL string, domain int, timeout time.Duration, ratePerSec float64, debug bool) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if domain <= 0 {
		domain = 1
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		domain:  domain,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		debug:   debug,
	}
	c.tokensLeft.Store(-1)
	return c
}

// TokensLeft returns the token balance reported by the last response, or -1
// before any request has completed.
func (c *Client) TokensLeft() int {
	return int(c.tokensLeft.Load())
}

// Domain returns the marketplace the client queries.
func (c *Client) Domain() int { return c.domain }

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// envelope holds the fields every Keepa response carries.
type envelope struct {
	TokensLeft *int            `json:"tokensLeft"`
	Error      json.RawMessage `json:"error"`
}

// get performs a GET request against endpoint and decodes the body into out.
// Concurrent identical requests share one round trip. The shared round trip
// is detached from any single caller's cancellation; each caller stops
// waiting when its own ctx is done.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params.Set("domain", fmt.Sprint(c.domain))
	key := endpoint + "?" + params.Encode()

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), endpoint, params)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}
	if res.Shared {
		slog.Debug("keepa request shared", "endpoint", endpoint)
	}
	body := res.Val.([]byte)

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if env.TokensLeft != nil {
		c.tokensLeft.Store(int64(*env.TokensLeft))
	}
	if msg := apiErrorMessage(env.Error); msg != "" {
		return fmt.Errorf("keepa API error: %s", msg)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// fetch performs the HTTP round trip with rate limiting and retries and
// returns the raw body of a 200 response.
func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("key", c.apiKey)
	reqURL := c.baseURL + endpoint + "?" + q.Encode()

	if c.debug {
		safe := reqURL
		if c.apiKey != "" {
			safe = strings.Replace(reqURL, url.QueryEscape(c.apiKey), "REDACTED", 1)
		}
		slog.Debug("keepa request", "url", safe)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))*500) * time.Millisecond
			slog.Debug("retrying after backoff", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "sellerscope-cli/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading body: %w", err)
			continue
		}

		if c.debug {
			slog.Debug("keepa response", "status", resp.StatusCode, "bytes", len(body))
		}

		// 429 means the token bucket is empty; Keepa refills it over time.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var env envelope
			_ = json.Unmarshal(body, &env)
			if msg := apiErrorMessage(env.Error); msg != "" {
				return nil, fmt.Errorf("keepa API error: %s", msg)
			}
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return body, nil
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// apiErrorMessage extracts a message from Keepa's "error" field, which is
// an object with a message, a string, or a list of strings.
func apiErrorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && (obj.Message != "" || obj.Type != "") {
		if obj.Message == "" {
			return obj.Type
		}
		return obj.Message
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
