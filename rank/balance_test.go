package rank

import (
	"testing"

	"github.com/poiesic/leadhunt/core"
	"github.com/stretchr/testify/assert"
)

func TestWaterFill(t *testing.T) {
	r, tw, q := core.SourceReddit, core.SourceTwitter, core.SourceQuora
	order := []core.Source{r, tw, q}

	tests := []struct {
		name   string
		counts map[core.Source]int
		n      int
		want   map[core.Source]int
	}{
		{
			name:   "equal split",
			counts: map[core.Source]int{r: 40, tw: 40, q: 40},
			n:      30,
			want:   map[core.Source]int{r: 10, tw: 10, q: 10},
		},
		{
			name:   "short source redistributes",
			counts: map[core.Source]int{r: 40, tw: 10, q: 10},
			n:      50,
			want:   map[core.Source]int{r: 30, tw: 10, q: 10},
		},
		{
			name:   "cascading redistribution",
			counts: map[core.Source]int{r: 40, tw: 20, q: 2},
			n:      50,
			want:   map[core.Source]int{r: 28, tw: 20, q: 2},
		},
		{
			name:   "remainder goes to first sources",
			counts: map[core.Source]int{r: 40, tw: 40, q: 40},
			n:      31,
			want:   map[core.Source]int{r: 11, tw: 10, q: 10},
		},
		{
			name:   "fewer slots than sources",
			counts: map[core.Source]int{r: 5, tw: 5, q: 5},
			n:      2,
			want:   map[core.Source]int{r: 1, tw: 1, q: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := waterFill(tt.counts, order, tt.n)
			for _, s := range order {
				assert.Equal(t, tt.want[s], got[s], "source %s", s)
			}
		})
	}
}

func TestBalance_UnderLimitUnchanged(t *testing.T) {
	in := []core.RankedResult{
		{Ranking: 1, Site: core.SourceReddit, URL: "https://a.com/1"},
		{Ranking: 2, Site: core.SourceReddit, URL: "https://a.com/2"},
	}
	assert.Equal(t, in, balance(in, 5))
}

func TestSortByRanking_Stable(t *testing.T) {
	in := []core.RankedResult{
		{Ranking: 2, URL: "b"},
		{Ranking: 0, URL: "z"},
		{Ranking: 1, URL: "a"},
		{Ranking: 2, URL: "c"},
	}
	sortByRanking(in)

	urls := []string{in[0].URL, in[1].URL, in[2].URL, in[3].URL}
	assert.Equal(t, []string{"a", "b", "c", "z"}, urls)
}
