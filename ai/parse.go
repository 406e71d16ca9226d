package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/leadhunt/core"
)

var (
	jsonFence    = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	genericFence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	listPrefix   = regexp.MustCompile(`^(\d+[.)]|[-*•])\s*`)
)

// ExtractJSONArray locates the JSON array in a model reply.
// A ```json fenced block wins, then any fenced block, then the outermost
// [...] span of the whole text.
func ExtractJSONArray(text string) (string, bool) {
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := genericFence.FindStringSubmatch(text); m != nil {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "[") {
			return body, true
		}
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// DecodeJSONArray extracts the JSON array from a model reply, repairs common
// formatting defects and unmarshals it into v.
// Failures wrap core.ErrMalformedResponse.
func DecodeJSONArray(text string, v any) error {
	block, ok := ExtractJSONArray(text)
	if !ok {
		return fmt.Errorf("%w: no json array in response", core.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(repairJSON(block)), v); err != nil {
		return fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
	}
	return nil
}

// ParseStringList decodes a JSON array of strings from a model reply.
// Entries are trimmed, empties dropped and duplicates removed.
func ParseStringList(text string) ([]string, error) {
	var items []string
	if err := DecodeJSONArray(text, &items); err != nil {
		return nil, err
	}
	return core.CleanStrings(items), nil
}

// SplitLines is the heuristic fallback for replies that are a textual list
// rather than JSON. List numbering, bullets, quotes and brackets are stripped.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			continue
		}
		line = listPrefix.ReplaceAllString(line, "")
		line = strings.Map(func(r rune) rune {
			if r == '"' || r == '[' || r == ']' {
				return -1
			}
			return r
		}, line)
		line = strings.TrimSuffix(strings.TrimSpace(line), ",")
		out = append(out, line)
	}
	return core.CleanStrings(out)
}
