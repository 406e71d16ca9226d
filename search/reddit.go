package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/poiesic/leadhunt/core"
)

// DefaultRedditURL is the public Reddit endpoint.
const DefaultRedditURL = "https://www.reddit.com"

// RedditAdapter searches Reddit posts from the last month, top sorted.
type RedditAdapter struct {
	base
}

var _ Adapter = (*RedditAdapter)(nil)

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string `json:"title"`
				Permalink string `json:"permalink"`
				Selftext  string `json:"selftext"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// NewRedditAdapter creates a Reddit adapter.
func NewRedditAdapter(opts ...AdapterOption) *RedditAdapter {
	return &RedditAdapter{base: newBase(core.SourceReddit, DefaultRedditURL, opts)}
}

func (a *RedditAdapter) Source() core.Source { return core.SourceReddit }

// Search queries {base}/search.json and maps every post to its permalink.
func (a *RedditAdapter) Search(ctx context.Context, query string) []core.SearchResult {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(a.limit))
	params.Set("sort", "top")
	params.Set("t", "month")

	endpoint := strings.TrimSuffix(a.baseURL, "/") + "/search.json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		a.logger.Error("error building request", "query", query, "err", err)
		return nil
	}
	req.Header.Set("Accept", "application/json")

	body, err := a.do(ctx, req)
	if err != nil {
		a.logger.Warn("search failed", "query", query, "err", err)
		return nil
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		a.logger.Warn("error decoding response", "query", query, "err", err)
		return nil
	}

	results := make([]core.SearchResult, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Permalink == "" {
			continue
		}
		results = append(results, core.SearchResult{
			Source:  core.SourceReddit,
			Title:   cleanText(post.Title),
			URL:     "https://reddit.com" + post.Permalink,
			Summary: summarize(post.Selftext),
			Query:   query,
		})
	}

	a.logger.Debug("search complete", "query", query, "results", len(results))
	return results
}
