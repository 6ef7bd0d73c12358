package markov

import (
	"slices"
	"strings"
)

// Follower is a word that was observed after a prefix, with its raw count.
type Follower struct {
	Word  string
	Count int
}

// Entry is one row of the follow table: a prefix and its followers, ordered by
// descending count.
type Entry struct {
	Prefix    []string
	Followers []Follower
}

// Total returns the sum of the follower counts.
func (e Entry) Total() int {
	total := 0
	for _, f := range e.Followers {
		total += f.Count
	}
	return total
}

// Key returns the prefix words joined by single spaces.
func (e Entry) Key() string {
	return strings.Join(e.Prefix, " ")
}

// Cumulative returns the running sums of the follower counts in order.
func (e Entry) Cumulative() []int {
	cum := make([]int, len(e.Followers))
	running := 0
	for i, f := range e.Followers {
		running += f.Count
		cum[i] = running
	}
	return cum
}

// sortFollowers orders followers by descending count, then case-insensitively
// by word. Exact spelling breaks any remaining tie so the order is total.
func sortFollowers(followers []Follower) {
	slices.SortFunc(followers, func(a, b Follower) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		if c := strings.Compare(strings.ToLower(a.Word), strings.ToLower(b.Word)); c != 0 {
			return c
		}
		return strings.Compare(a.Word, b.Word)
	})
}

// ComparePrefixes orders prefixes word by word, case-insensitively. When one
// prefix is a leading sequence of the other, the shorter one sorts first.
func ComparePrefixes(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(strings.ToLower(a[i]), strings.ToLower(b[i])); c != 0 {
			return c
		}
	}
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return slices.Compare(a, b)
}

// SortEntries sorts entries into output order.
func SortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return ComparePrefixes(a.Prefix, b.Prefix)
	})
}
