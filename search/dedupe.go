package search

import "github.com/poiesic/leadhunt/core"

// Dedupe drops results whose URL is not an absolute http(s) URL and keeps
// only the first occurrence of every URL. Order is preserved.
func Dedupe(results []core.SearchResult) []core.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]core.SearchResult, 0, len(results))
	for _, r := range results {
		if !core.IsAbsoluteHTTPURL(r.URL) {
			continue
		}
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}
