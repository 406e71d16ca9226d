package search

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/leadhunt/core"
)

// Site is a domain searched through a site-restricted adapter.
type Site struct {
	Source core.Source `yaml:"source"`
	Domain string      `yaml:"domain"`
}

// DefaultSites are the site-restricted sources of a default deployment.
var DefaultSites = []Site{
	{Source: core.SourceTwitter, Domain: "twitter.com"},
	{Source: core.SourceQuora, Domain: "quora.com"},
}

// Config selects and tunes the adapters of a deployment.
type Config struct {
	// RedditURL overrides the Reddit endpoint. Empty means DefaultRedditURL.
	RedditURL string `yaml:"reddit_url"`

	// SerperURL overrides the Serper endpoint. Empty means DefaultSerperURL.
	SerperURL string `yaml:"serper_url"`

	// SerperAPIKey enables Serper for the site-restricted sources. Without a
	// key those sources fall back to DuckDuckGo.
	SerperAPIKey string `yaml:"serper_api_key"`

	// DuckDuckGoURL overrides the DuckDuckGo endpoint.
	DuckDuckGoURL string `yaml:"duckduckgo_url"`

	// HackerNewsURL overrides the hnrss endpoint.
	HackerNewsURL string `yaml:"hackernews_url"`

	// DisableReddit turns the Reddit adapter off.
	DisableReddit bool `yaml:"disable_reddit"`

	// EnableHackerNews turns the Hacker News adapter on.
	EnableHackerNews bool `yaml:"enable_hackernews"`

	// Sites are searched with Serper or DuckDuckGo.
	Sites []Site `yaml:"sites"`

	// RequestsPerSecond paces each adapter independently. Zero disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the limiter burst size.
	Burst int `yaml:"burst"`

	// Timeout bounds each provider request.
	Timeout time.Duration `yaml:"timeout"`

	// ResultsPerQuery is how many results each adapter requests per query.
	ResultsPerQuery int `yaml:"results_per_query"`
}

// DefaultConfig returns Reddit plus Twitter and Quora, two requests per
// second per adapter and a 15s timeout.
func DefaultConfig() Config {
	return Config{
		Sites:             append([]Site(nil), DefaultSites...),
		RequestsPerSecond: 2,
		Burst:             2,
		Timeout:           defaultTimeout,
		ResultsPerQuery:   defaultLimit,
	}
}

// NewAdapters builds the adapters selected by cfg, sharing one HTTP client.
func NewAdapters(cfg Config, logger *slog.Logger) []Adapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	// Each adapter gets its own limiter.
	opts := func(baseURL string) []AdapterOption {
		return []AdapterOption{
			WithHTTPClient(client),
			WithBaseURL(baseURL),
			WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
			WithResultLimit(cfg.ResultsPerQuery),
			WithLogger(logger),
		}
	}

	var adapters []Adapter
	if !cfg.DisableReddit {
		adapters = append(adapters, NewRedditAdapter(opts(cfg.RedditURL)...))
	}
	for _, site := range cfg.Sites {
		if cfg.SerperAPIKey != "" {
			adapters = append(adapters, NewSerperAdapter(site.Source, site.Domain, cfg.SerperAPIKey, opts(cfg.SerperURL)...))
		} else {
			adapters = append(adapters, NewDuckDuckGoAdapter(site.Source, site.Domain, opts(cfg.DuckDuckGoURL)...))
		}
	}
	if cfg.EnableHackerNews {
		adapters = append(adapters, NewHackerNewsAdapter(opts(cfg.HackerNewsURL)...))
	}
	return adapters
}
