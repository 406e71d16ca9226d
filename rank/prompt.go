package rank

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/leadhunt/core"
)

// promptCandidate is the shape candidates take inside the ranking prompt.
type promptCandidate struct {
	Site    core.Source `json:"site"`
	Title   string      `json:"title"`
	Summary string      `json:"summary"`
	URL     string      `json:"url"`
}

func buildPrompt(candidates []core.SearchResult, product core.ProductContext, targetProfiles []string, topN int) (string, error) {
	posts := make([]promptCandidate, len(candidates))
	for i, c := range candidates {
		posts[i] = promptCandidate{Site: c.Source, Title: c.Title, Summary: c.Summary, URL: c.URL}
	}
	postsJSON, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return "", err
	}
	profilesJSON, err := json.Marshal(core.CleanStrings(targetProfiles))
	if err != nil {
		return "", err
	}

	sources := sourcesOf(candidates)

	var b strings.Builder
	b.WriteString("You're helping a startup evaluate online discussions to identify those that are most relevant for customer discovery and early traction.\n\n")
	fmt.Fprintf(&b, "The startup is building: %q\n", product.Name)
	fmt.Fprintf(&b, "Description: %q\n", product.Description)
	fmt.Fprintf(&b, "Target audience: %s\n\n", profilesJSON)
	fmt.Fprintf(&b, "Given the following list of forum posts (each with site, title, summary, and url), pick the top %d posts that would be most valuable for this startup to engage with, based on their relevance to the product and its audience.\n\n", topN)
	b.WriteString("Prioritize discussions where the startup can learn about users' problems, validate their solution, or connect with potential users.\n\n")
	if len(sources) > 1 {
		fmt.Fprintf(&b, "Ensure source diversity: aim for an equal share of posts from %s if enough relevant posts are available. If one site has fewer than its share, include all of its relevant posts and give the remaining slots to the other sites.\n\n", strings.Join(sources, ", "))
	}
	b.WriteString("Do NOT invent or modify any posts; only select from the provided list and copy each url exactly.\n\n")
	b.WriteString("Return only a single fenced JSON block containing an array like:\n")
	b.WriteString("```json\n[\n  { \"ranking\": 1, \"site\": \"Reddit\", \"url\": \"https://...\" },\n  { \"ranking\": 2, \"site\": \"Twitter\", \"url\": \"https://...\" }\n]\n```\n\n")
	b.WriteString("Forum posts:\n")
	b.Write(postsJSON)
	b.WriteString("\n")
	return b.String(), nil
}

// sourcesOf lists the distinct sources of candidates in first-appearance order.
func sourcesOf(candidates []core.SearchResult) []string {
	seen := make(map[core.Source]struct{})
	var out []string
	for _, c := range candidates {
		if _, ok := seen[c.Source]; ok {
			continue
		}
		seen[c.Source] = struct{}{}
		out = append(out, string(c.Source))
	}
	return out
}
