package rank

import (
	"cmp"
	"math"
	"slices"

	"github.com/poiesic/leadhunt/core"
)

// balance keeps at most n entries with per-source quotas computed by
// waterFill. Within a source the input order is kept.
func balance(entries []core.RankedResult, n int) []core.RankedResult {
	if len(entries) <= n {
		return entries
	}

	counts := make(map[core.Source]int)
	var order []core.Source
	for _, e := range entries {
		if counts[e.Site] == 0 {
			order = append(order, e.Site)
		}
		counts[e.Site]++
	}

	quota := waterFill(counts, order, n)
	taken := make(map[core.Source]int, len(order))
	out := make([]core.RankedResult, 0, n)
	for _, e := range entries {
		if taken[e.Site] >= quota[e.Site] {
			continue
		}
		taken[e.Site]++
		out = append(out, e)
	}
	return out
}

// waterFill splits n slots evenly across sources. A source with fewer entries
// than its share takes all of them and its unused slots are split among the
// others. Slots that cannot be split evenly go to sources in order.
func waterFill(counts map[core.Source]int, order []core.Source, n int) map[core.Source]int {
	quota := make(map[core.Source]int, len(order))
	active := slices.Clone(order)
	remaining := n

	for len(active) > 0 && remaining > 0 {
		share := remaining / len(active)
		next := active[:0:0]
		for _, s := range active {
			if counts[s] <= share {
				quota[s] = counts[s]
				remaining -= counts[s]
				continue
			}
			next = append(next, s)
		}
		if len(next) == len(active) {
			extra := remaining % len(active)
			for i, s := range active {
				quota[s] = share
				if i < extra {
					quota[s]++
				}
			}
			break
		}
		active = next
	}
	return quota
}

// sortByRanking orders entries by the model's ranking. Entries without a
// positive ranking go last. Ties keep their reply order.
func sortByRanking(entries []core.RankedResult) {
	key := func(r core.RankedResult) int {
		if r.Ranking <= 0 {
			return math.MaxInt
		}
		return r.Ranking
	}
	slices.SortStableFunc(entries, func(a, b core.RankedResult) int {
		return cmp.Compare(key(a), key(b))
	})
}

// renumber assigns ranks 1..n in slice order.
func renumber(entries []core.RankedResult) {
	for i := range entries {
		entries[i].Ranking = i + 1
	}
}
