package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/poiesic/leadhunt/core"
)

// DefaultSerperURL is the Serper Google search API.
const DefaultSerperURL = "https://google.serper.dev"

// SerperAdapter runs Google searches restricted to one domain through the
// Serper API and tags results with a fixed source.
type SerperAdapter struct {
	base
	source core.Source
	domain string
	apiKey string
}

var _ Adapter = (*SerperAdapter)(nil)

type serperRequest struct {
	Q   string `json:"q"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
	TBS string `json:"tbs"`
	Num int    `json:"num,omitempty"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// NewSerperAdapter creates an adapter searching domain (e.g. "twitter.com")
// whose results are tagged source.
func NewSerperAdapter(source core.Source, domain, apiKey string, opts ...AdapterOption) *SerperAdapter {
	return &SerperAdapter{
		base:   newBase(source, DefaultSerperURL, opts),
		source: source,
		domain: domain,
		apiKey: apiKey,
	}
}

func (a *SerperAdapter) Source() core.Source { return a.source }

// Search posts "<query> site:<domain>" limited to the past month.
func (a *SerperAdapter) Search(ctx context.Context, query string) []core.SearchResult {
	payload, err := json.Marshal(serperRequest{
		Q:   siteQuery(query, a.domain),
		GL:  "us",
		HL:  "en",
		TBS: "qdr:m",
		Num: a.limit,
	})
	if err != nil {
		a.logger.Error("error encoding request", "query", query, "err", err)
		return nil
	}

	endpoint := strings.TrimSuffix(a.baseURL, "/") + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		a.logger.Error("error building request", "query", query, "err", err)
		return nil
	}
	req.Header.Set("X-API-KEY", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	body, err := a.do(ctx, req)
	if err != nil {
		a.logger.Warn("search failed", "query", query, "err", err)
		return nil
	}

	var decoded serperResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		a.logger.Warn("error decoding response", "query", query, "err", err)
		return nil
	}

	results := make([]core.SearchResult, 0, len(decoded.Organic))
	for _, hit := range decoded.Organic {
		if hit.Link == "" {
			continue
		}
		results = append(results, core.SearchResult{
			Source:  a.source,
			Title:   cleanText(hit.Title),
			URL:     strings.TrimSpace(hit.Link),
			Summary: summarize(hit.Snippet),
			Query:   query,
		})
	}

	a.logger.Debug("search complete", "query", query, "results", len(results))
	return results
}
