package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/leadhunt/core"
	"golang.org/x/time/rate"
)

// Adapter queries one external source for one free-text query.
// Implementations must be safe for concurrent use.
type Adapter interface {
	// Source returns the tag stamped on every result of this adapter.
	Source() core.Source

	// Search returns zero or more normalized results. It never fails:
	// problems are logged and produce an empty slice.
	Search(ctx context.Context, query string) []core.SearchResult
}

const (
	defaultTimeout   = 15 * time.Second
	defaultLimit     = 10
	defaultUserAgent = "leadhunt/1.0 (+https://github.com/poiesic/leadhunt)"
	maxBodyBytes     = 4 << 20
)

// base holds what every HTTP adapter shares: client, pacing and logging.
type base struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	limit     int
	logger    *slog.Logger
}

// AdapterOption configures an adapter.
type AdapterOption func(*base)

// WithBaseURL overrides the provider endpoint. Used to point adapters at
// proxies or test servers.
func WithBaseURL(u string) AdapterOption {
	return func(b *base) {
		if u != "" {
			b.baseURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client. Default is a client with a 15s timeout.
func WithHTTPClient(c *http.Client) AdapterOption {
	return func(b *base) {
		if c != nil {
			b.client = c
		}
	}
}

// WithRateLimit paces outgoing requests to rps requests per second.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) AdapterOption {
	return func(b *base) {
		if rps <= 0 {
			b.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header sent to providers.
func WithUserAgent(ua string) AdapterOption {
	return func(b *base) {
		if ua != "" {
			b.userAgent = ua
		}
	}
}

// WithResultLimit sets how many results are requested per query.
func WithResultLimit(n int) AdapterOption {
	return func(b *base) {
		if n > 0 {
			b.limit = n
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(b *base) {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
	}
}

func newBase(source core.Source, defaultURL string, opts []AdapterOption) base {
	b := base{
		baseURL:   defaultURL,
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		limit:     defaultLimit,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.With("component", "search-adapter", "source", string(source))
	return b
}

// do waits for the rate limiter, sends req and returns the body of a 2xx response.
func (b *base) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
