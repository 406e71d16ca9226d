package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/leadhunt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRedditAdapter_Search(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "time tracking", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "top", r.URL.Query().Get("sort"))
		assert.Equal(t, "month", r.URL.Query().Get("t"))
		_, _ = io.WriteString(w, `{"data":{"children":[
			{"data":{"title":"Best  time tracker?","permalink":"/r/startups/comments/abc/x/","selftext":"We need one"}},
			{"data":{"title":"no permalink","permalink":""}}
		]}}`)
	})

	a := NewRedditAdapter(WithBaseURL(srv.URL))
	got := a.Search(context.Background(), "time tracking")

	require.Len(t, got, 1)
	assert.Equal(t, core.SearchResult{
		Source:  core.SourceReddit,
		Title:   "Best time tracker?",
		URL:     "https://reddit.com/r/startups/comments/abc/x/",
		Summary: "We need one",
		Query:   "time tracking",
	}, got[0])
	assert.Equal(t, core.SourceReddit, a.Source())
}

func TestRedditAdapter_FailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"data":`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.handler)
			got := NewRedditAdapter(WithBaseURL(srv.URL)).Search(context.Background(), "q")
			assert.Empty(t, got)
		})
	}
}

func TestRedditAdapter_Unreachable(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {})
	url := srv.URL
	srv.Close()

	assert.Empty(t, NewRedditAdapter(WithBaseURL(url)).Search(context.Background(), "q"))
}

func TestSerperAdapter_Search(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))

		var body serperRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "remote teams site:twitter.com", body.Q)
		assert.Equal(t, "us", body.GL)
		assert.Equal(t, "en", body.HL)
		assert.Equal(t, "qdr:m", body.TBS)

		_, _ = io.WriteString(w, `{"organic":[
			{"title":"Acme","link":"https://twitter.com/acme","snippet":"Acme makes tools"},
			{"title":"Thread","link":"https://twitter.com/bob/status/1","snippet":"anyone?"},
			{"title":"no link","link":""}
		]}`)
	})

	a := NewSerperAdapter(core.SourceTwitter, "twitter.com", "secret", WithBaseURL(srv.URL))
	got := a.Search(context.Background(), "remote teams")

	require.Len(t, got, 2)
	assert.Equal(t, core.SourceTwitter, got[0].Source)
	assert.Equal(t, "https://twitter.com/acme", got[0].URL)
	assert.Equal(t, "Acme makes tools", got[0].Summary)
	assert.Equal(t, "https://twitter.com/bob/status/1", got[1].URL)
	assert.Equal(t, core.SourceTwitter, a.Source())
}

func TestSerperAdapter_Unauthorized(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	got := NewSerperAdapter(core.SourceQuora, "quora.com", "bad", WithBaseURL(srv.URL)).Search(context.Background(), "q")
	assert.Empty(t, got)
}

func TestDuckDuckGoAdapter_Search(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/html/", r.URL.Path)
		assert.Equal(t, "time tracking site:quora.com", r.URL.Query().Get("q"))
		assert.Equal(t, "m", r.URL.Query().Get("df"))
		_, _ = io.WriteString(w, `<html><body>
			<div class="result">
				<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.quora.com%2FWhat-is-the-best-time-tracker&rut=x">What is the best time tracker?</a>
				<a class="result__snippet">Answers   from users</a>
			</div>
			<div class="result">
				<a class="result__a" href="https://www.quora.com/How-do-teams-log-hours">How do teams log hours?</a>
			</div>
			<div class="result"><span>no anchor</span></div>
		</body></html>`)
	})

	a := NewDuckDuckGoAdapter(core.SourceQuora, "quora.com", WithBaseURL(srv.URL))
	got := a.Search(context.Background(), "time tracking")

	require.Len(t, got, 2)
	assert.Equal(t, "https://www.quora.com/What-is-the-best-time-tracker", got[0].URL)
	assert.Equal(t, "What is the best time tracker?", got[0].Title)
	assert.Equal(t, "Answers from users", got[0].Summary)
	assert.Equal(t, core.SourceQuora, got[0].Source)
	assert.Equal(t, "https://www.quora.com/How-do-teams-log-hours", got[1].URL)
}

func TestDuckDuckGoAdapter_ResultLimit(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<div class="result"><a class="result__a" href="https://a.com/1">1</a></div>
			<div class="result"><a class="result__a" href="https://a.com/2">2</a></div>
			<div class="result"><a class="result__a" href="https://a.com/3">3</a></div>`)
	})

	got := NewDuckDuckGoAdapter(core.SourceQuora, "a.com", WithBaseURL(srv.URL), WithResultLimit(2)).Search(context.Background(), "q")
	assert.Len(t, got, 2)
}

func TestHackerNewsAdapter_Search(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/newest", r.URL.Path)
		assert.Equal(t, "time tracking", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Hacker News: Newest</title>
<link>https://news.ycombinator.com/newest</link>
<description>hnrss</description>
<item>
<title>Ask HN: How do you track time?</title>
<link>https://news.ycombinator.com/item?id=1</link>
<description><![CDATA[<p>Points: 12</p><p>#  Comments: 30</p>]]></description>
</item>
</channel></rss>`)
	})

	got := NewHackerNewsAdapter(WithBaseURL(srv.URL)).Search(context.Background(), "time tracking")

	require.Len(t, got, 1)
	assert.Equal(t, core.SourceHackerNews, got[0].Source)
	assert.Equal(t, "Ask HN: How do you track time?", got[0].Title)
	assert.Equal(t, "https://news.ycombinator.com/item?id=1", got[0].URL)
	assert.Equal(t, "Points: 12# Comments: 30", got[0].Summary)
}

func TestHackerNewsAdapter_BadFeed(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not a feed")
	})

	assert.Empty(t, NewHackerNewsAdapter(WithBaseURL(srv.URL)).Search(context.Background(), "q"))
}

func TestAdapter_RateLimitHonorsContext(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"children":[]}}`)
	})
	a := NewRedditAdapter(WithBaseURL(srv.URL), WithRateLimit(0.001, 1))

	// First call consumes the burst token.
	assert.Empty(t, a.Search(context.Background(), "q"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, a.Search(ctx, "q"))
}

func TestNewAdapters(t *testing.T) {
	t.Run("defaults fall back to duckduckgo", func(t *testing.T) {
		adapters := NewAdapters(DefaultConfig(), nil)
		require.Len(t, adapters, 3)
		assert.IsType(t, &RedditAdapter{}, adapters[0])
		assert.IsType(t, &DuckDuckGoAdapter{}, adapters[1])
		assert.Equal(t, core.SourceTwitter, adapters[1].Source())
		assert.Equal(t, core.SourceQuora, adapters[2].Source())
	})

	t.Run("serper key and hacker news", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SerperAPIKey = "k"
		cfg.EnableHackerNews = true
		cfg.DisableReddit = true

		adapters := NewAdapters(cfg, nil)
		require.Len(t, adapters, 3)
		assert.IsType(t, &SerperAdapter{}, adapters[0])
		assert.IsType(t, &SerperAdapter{}, adapters[1])
		assert.IsType(t, &HackerNewsAdapter{}, adapters[2])
	})
}
