package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fjod/cartstate/cart-service/internal/domain"
	"github.com/fjod/cartstate/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const maxBodyBytes = 1 << 20

// RetryPolicy controls retries of transient failures (network errors, 408,
// 429 and 5xx). MaxRetries of zero disables retrying.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 250 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Its transport is used as-is.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

func WithBreakerSettings(s circuitbreaker.Settings) Option {
	return func(c *Client) {
		c.breakerSettings = &s
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client talks to the storefront API: GET /stock/{id} and GET /products/{id}.
// Concurrent lookups of the same path share one request.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	timeout         time.Duration
	retry           RetryPolicy
	breakerSettings *circuitbreaker.Settings
	breaker         *gobreaker.CircuitBreaker[[]byte]
	group           singleflight.Group
	log             *slog.Logger
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("catalog: base URL is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("catalog: base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: parsed,
		timeout: 10 * time.Second,
		retry:   DefaultRetryPolicy,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   c.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	settings := circuitbreaker.DefaultSettings("catalog " + parsed.Host)
	if c.breakerSettings != nil {
		settings = *c.breakerSettings
	}
	settings.Logger = c.log
	// a missing id or a caller giving up says nothing about upstream health
	settings.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
	}
	c.breaker = circuitbreaker.New[[]byte](settings)

	return c, nil
}

// GetStock returns ErrNotFound when the inventory has no entry for id.
func (c *Client) GetStock(ctx context.Context, productID int64) (domain.Stock, error) {
	var stock domain.Stock
	if err := c.getJSON(ctx, "stock", productID, &stock); err != nil {
		return domain.Stock{}, err
	}
	return stock, nil
}

// GetProduct returns ErrNotFound when the catalog has no entry for id.
func (c *Client) GetProduct(ctx context.Context, productID int64) (domain.Product, error) {
	var product domain.Product
	if err := c.getJSON(ctx, "products", productID, &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (c *Client) getJSON(ctx context.Context, resource string, id int64, dst any) error {
	path := c.baseURL.JoinPath(resource, strconv.FormatInt(id, 10)).String()

	// The shared fetch outlives any single caller, so one caller cancelling
	// cannot fail the others waiting on it.
	ch := c.group.DoChan(path, func() (any, error) {
		fctx, cancel := c.flightContext(ctx)
		defer cancel()
		return c.breaker.Execute(func() ([]byte, error) {
			return c.fetch(fctx, path)
		})
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		if circuitbreaker.IsOpen(res.Err) {
			return fmt.Errorf("catalog: %s skipped: %w", path, res.Err)
		}
		return res.Err
	}
	if res.Shared {
		c.log.DebugContext(ctx, "shared in-flight lookup", "path", path)
	}

	data := bytes.TrimSpace(res.Val.([]byte))
	// json-server style APIs answer an unknown id with an empty body or null
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", resource, err)
	}
	return nil
}

// flightContext detaches the shared fetch from the caller that started it.
// It keeps the caller's values and is bounded by the timeout plus the
// backoff ceiling of every attempt.
func (c *Client) flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.timeout <= 0 {
		return context.WithCancel(detached)
	}
	attempts := time.Duration(c.retry.MaxRetries + 1)
	return context.WithTimeout(detached, c.timeout*attempts+c.retry.MaxInterval*attempts)
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	var b backoff.BackOff
	if c.retry.MaxRetries == 0 {
		b = &backoff.StopBackOff{}
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = c.retry.InitialInterval
		exp.MaxInterval = c.retry.MaxInterval
		exp.MaxElapsedTime = 0
		b = backoff.WithMaxRetries(exp, c.retry.MaxRetries)
	}

	attempt := 0
	return backoff.RetryWithData(func() ([]byte, error) {
		attempt++
		data, err := c.do(ctx, path)
		if err == nil {
			return data, nil
		}
		if !retryable(ctx, err) {
			return nil, backoff.Permanent(err)
		}
		c.log.WarnContext(ctx, "catalog request failed, retrying", "path", path, "attempt", attempt, "err", err)
		return nil, err
	}, backoff.WithContext(b, ctx))
}

func (c *Client) do(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("catalog: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	default:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrNotFound) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return true
}
