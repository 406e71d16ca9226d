// Package competitor separates profile pages of possible competitors from
// discussion results.
//
// A result is a competitor when its source is a configured profile platform
// and its URL is the root of a profile on one of that platform's hosts:
// scheme, host and exactly one non-empty path segment, with an optional
// trailing slash. Query strings and fragments disqualify a URL.
package competitor

import (
	"net/url"
	"strings"

	"github.com/poiesic/leadhunt/core"
)

// Platform describes a source whose root profile URLs identify accounts.
type Platform struct {
	Source core.Source
	Hosts  []string
}

// DefaultPlatforms recognizes Twitter and X profile pages.
var DefaultPlatforms = []Platform{
	{
		Source: core.SourceTwitter,
		Hosts:  []string{"twitter.com", "www.twitter.com", "x.com", "www.x.com"},
	},
}

// Extractor partitions results into competitors and the remainder.
type Extractor struct {
	hosts map[core.Source]map[string]struct{}
}

// New creates an extractor for platforms. With no platforms, DefaultPlatforms are used.
func New(platforms ...Platform) *Extractor {
	if len(platforms) == 0 {
		platforms = DefaultPlatforms
	}
	e := &Extractor{hosts: make(map[core.Source]map[string]struct{}, len(platforms))}
	for _, p := range platforms {
		set, ok := e.hosts[p.Source]
		if !ok {
			set = make(map[string]struct{}, len(p.Hosts))
			e.hosts[p.Source] = set
		}
		for _, h := range p.Hosts {
			set[strings.ToLower(h)] = struct{}{}
		}
	}
	return e
}

// Partition splits results into competitor profiles and everything else.
// Every input lands in exactly one output and both preserve input order.
func (e *Extractor) Partition(results []core.SearchResult) ([]core.Competitor, []core.SearchResult) {
	competitors := make([]core.Competitor, 0)
	remainder := make([]core.SearchResult, 0, len(results))
	for _, r := range results {
		if e.IsProfile(r) {
			competitors = append(competitors, core.CompetitorFromResult(r))
			continue
		}
		remainder = append(remainder, r)
	}
	return competitors, remainder
}

// IsProfile reports whether r is a root profile page of a configured platform.
func (e *Extractor) IsProfile(r core.SearchResult) bool {
	hosts, ok := e.hosts[r.Source]
	if !ok {
		return false
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if _, ok := hosts[strings.ToLower(u.Host)]; !ok {
		return false
	}
	if u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return false
	}
	return isSingleSegment(u.EscapedPath())
}

// isSingleSegment reports whether path is "/name" or "/name/".
func isSingleSegment(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	return path != "" && !strings.Contains(path, "/")
}

// Partition splits results using DefaultPlatforms.
func Partition(results []core.SearchResult) ([]core.Competitor, []core.SearchResult) {
	return defaultExtractor.Partition(results)
}

var defaultExtractor = New()
