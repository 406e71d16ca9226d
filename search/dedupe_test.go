package search

import (
	"strings"
	"testing"

	"github.com/poiesic/leadhunt/core"
	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	in := []core.SearchResult{
		{Source: core.SourceReddit, Title: "first", URL: "http://a.com/1"},
		{Source: core.SourceTwitter, Title: "second", URL: "http://a.com/1"},
		{Source: core.SourceReddit, Title: "relative", URL: "/r/startups"},
		{Source: core.SourceQuora, Title: "ftp", URL: "ftp://a.com/x"},
		{Source: core.SourceQuora, Title: "third", URL: "https://quora.com/q"},
	}

	got := Dedupe(in)

	assert.Equal(t, []core.SearchResult{
		{Source: core.SourceReddit, Title: "first", URL: "http://a.com/1"},
		{Source: core.SourceQuora, Title: "third", URL: "https://quora.com/q"},
	}, got)
}

func TestDedupe_Idempotent(t *testing.T) {
	in := []core.SearchResult{
		{URL: "https://a.com/1"},
		{URL: "https://a.com/1"},
		{URL: "https://a.com/2"},
	}

	once := Dedupe(in)
	assert.Equal(t, once, Dedupe(once))
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 2))

	long := strings.Repeat("é", maxSummaryRunes+10)
	assert.Equal(t, maxSummaryRunes+1, len([]rune(summarize(long))))
}

func TestSiteQuery(t *testing.T) {
	assert.Equal(t, "remote work site:quora.com", siteQuery(" remote work ", "quora.com"))
}
