package search

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/poiesic/leadhunt/core"
)

// DefaultHackerNewsURL is the hnrss.org feed service.
const DefaultHackerNewsURL = "https://hnrss.org"

// HackerNewsAdapter searches Hacker News through the hnrss.org search feed.
// Result links point at the discussion thread, not the submitted article.
type HackerNewsAdapter struct {
	base
}

var _ Adapter = (*HackerNewsAdapter)(nil)

// NewHackerNewsAdapter creates a Hacker News adapter.
func NewHackerNewsAdapter(opts ...AdapterOption) *HackerNewsAdapter {
	return &HackerNewsAdapter{base: newBase(core.SourceHackerNews, DefaultHackerNewsURL, opts)}
}

func (a *HackerNewsAdapter) Source() core.Source { return core.SourceHackerNews }

// Search fetches {base}/newest?q=<query>&count=<limit>&link=comments.
func (a *HackerNewsAdapter) Search(ctx context.Context, query string) []core.SearchResult {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(a.limit))
	params.Set("link", "comments")

	endpoint := strings.TrimSuffix(a.baseURL, "/") + "/newest?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		a.logger.Error("error building request", "query", query, "err", err)
		return nil
	}

	body, err := a.do(ctx, req)
	if err != nil {
		a.logger.Warn("search failed", "query", query, "err", err)
		return nil
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		a.logger.Warn("error parsing feed", "query", query, "err", err)
		return nil
	}

	results := make([]core.SearchResult, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}
		results = append(results, core.SearchResult{
			Source:  core.SourceHackerNews,
			Title:   cleanText(it.Title),
			URL:     link,
			Summary: summarize(htmlText(it.Description)),
			Query:   query,
		})
	}

	a.logger.Debug("search complete", "query", query, "results", len(results))
	return results
}

// htmlText returns the text content of an HTML fragment.
func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}
