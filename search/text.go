package search

import "strings"

// maxSummaryRunes bounds the summary kept per result. Ranking prompts embed
// every summary, so long self-posts are cut.
const maxSummaryRunes = 500

// cleanText collapses runs of whitespace into single spaces and trims the result.
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncate cuts text to at most n runes, appending an ellipsis when shortened.
func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

// summarize normalizes a provider snippet for storage and prompting.
func summarize(text string) string {
	return truncate(cleanText(text), maxSummaryRunes)
}

// siteQuery restricts query to a single domain using search engine syntax.
func siteQuery(query, domain string) string {
	return strings.TrimSpace(query) + " site:" + domain
}
