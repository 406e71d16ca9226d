package search

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/leadhunt/core"
)

// DefaultDuckDuckGoURL is the DuckDuckGo HTML frontend.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com"

// DuckDuckGoAdapter scrapes the DuckDuckGo HTML results page for one domain.
// It needs no API key and stands in for SerperAdapter when none is configured.
type DuckDuckGoAdapter struct {
	base
	source core.Source
	domain string
}

var _ Adapter = (*DuckDuckGoAdapter)(nil)

// NewDuckDuckGoAdapter creates an adapter searching domain whose results are tagged source.
func NewDuckDuckGoAdapter(source core.Source, domain string, opts ...AdapterOption) *DuckDuckGoAdapter {
	return &DuckDuckGoAdapter{
		base:   newBase(source, DefaultDuckDuckGoURL, opts),
		source: source,
		domain: domain,
	}
}

func (a *DuckDuckGoAdapter) Source() core.Source { return a.source }

// Search fetches {base}/html/ for "<query> site:<domain>" limited to the past month.
func (a *DuckDuckGoAdapter) Search(ctx context.Context, query string) []core.SearchResult {
	params := url.Values{}
	params.Set("q", siteQuery(query, a.domain))
	params.Set("df", "m")

	endpoint := strings.TrimSuffix(a.baseURL, "/") + "/html/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		a.logger.Error("error building request", "query", query, "err", err)
		return nil
	}
	req.Header.Set("Accept", "text/html")

	body, err := a.do(ctx, req)
	if err != nil {
		a.logger.Warn("search failed", "query", query, "err", err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		a.logger.Warn("error parsing results page", "query", query, "err", err)
		return nil
	}

	var results []core.SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) >= a.limit {
			return false
		}
		anchor := s.Find("a.result__a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}
		link := resolveDuckDuckGoLink(href)
		if link == "" {
			return true
		}
		results = append(results, core.SearchResult{
			Source:  a.source,
			Title:   cleanText(anchor.Text()),
			URL:     link,
			Summary: summarize(s.Find(".result__snippet").Text()),
			Query:   query,
		})
		return true
	})

	a.logger.Debug("search complete", "query", query, "results", len(results))
	return results
}

// resolveDuckDuckGoLink unwraps DuckDuckGo redirect links
// (//duckduckgo.com/l/?uddg=<target>) into the target URL.
func resolveDuckDuckGoLink(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		u.Scheme = "https"
	}
	return u.String()
}
