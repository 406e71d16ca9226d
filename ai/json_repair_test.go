package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "valid input is unchanged",
			in:   `["a", "b"]`,
			want: `["a", "b"]`,
		},
		{
			name: "trailing comma in array",
			in:   `["a", "b",]`,
			want: `["a", "b"]`,
		},
		{
			name: "trailing comma before newline",
			in:   "[\"a\",\n]",
			want: "[\"a\"\n]",
		},
		{
			name: "trailing comma in object",
			in:   `[{"url": "x", "score": 2,}]`,
			want: `[{"url": "x", "score": 2}]`,
		},
		{
			name: "single quoted strings",
			in:   `['time tracking', 'remote teams']`,
			want: `["time tracking", "remote teams"]`,
		},
		{
			name: "single quoted string with double quotes inside",
			in:   `['say "hi"', 'it\'s']`,
			want: `["say \"hi\"", "it's"]`,
		},
		{
			name: "smart double quotes",
			in:   `[“time tracking”, “remote teams”]`,
			want: `["time tracking", "remote teams"]`,
		},
		{
			name: "smart single quotes",
			in:   `[‘time tracking’]`,
			want: `["time tracking"]`,
		},
		{
			name: "smart quotes inside a plain string are content",
			in:   `["he said “hi”", "don’t"]`,
			want: `["he said “hi”", "don’t"]`,
		},
		{
			name: "missing opening quote on key",
			in:   `[{"ranking": 1, url": "https://a.com/1"}]`,
			want: `[{"ranking": 1, "url": "https://a.com/1"}]`,
		},
		{
			name: "bare keys",
			in:   `[{url: 'https://a.com', ranking: 3}]`,
			want: `[{"url": "https://a.com", "ranking": 3}]`,
		},
		{
			name: "literals are not keys",
			in:   `[true, null, false,]`,
			want: `[true, null, false]`,
		},
		{
			name: "commas and braces inside strings are content",
			in:   `["a, }", "b,]"]`,
			want: `["a, }", "b,]"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repairJSON(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)), "repaired output should be valid json: %s", got)
		})
	}
}

func TestDecodeJSONArray_RepairsMixedDefects(t *testing.T) {
	type entry struct {
		Ranking int    `json:"ranking"`
		URL     string `json:"url"`
	}
	reply := "Sure!\n```json\n[\n  {ranking: 1, 'url': “https://a.com/1”},\n  {ranking: 2, url: 'https://a.com/2',},\n]\n```"

	var v []entry
	require.NoError(t, DecodeJSONArray(reply, &v))
	assert.Equal(t, []entry{
		{Ranking: 1, URL: "https://a.com/1"},
		{Ranking: 2, URL: "https://a.com/2"},
	}, v)
}
