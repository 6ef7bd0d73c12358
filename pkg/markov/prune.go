package markov

// Prune removes follower links seen fewer than minCount times, along with any
// entry left without followers. This is useful for reducing the size of a table
// by removing rare, and often noisy, transitions. A minCount of 1 or less
// returns entries unchanged. The input slice is not modified.
func Prune(entries []Entry, minCount int) []Entry {
	if minCount <= 1 {
		return entries
	}

	pruned := make([]Entry, 0, len(entries))
	for _, e := range entries {
		var kept []Follower
		for _, f := range e.Followers {
			if f.Count >= minCount {
				kept = append(kept, f)
			}
		}
		if len(kept) == 0 {
			continue
		}
		pruned = append(pruned, Entry{Prefix: e.Prefix, Followers: kept})
	}
	return pruned
}
