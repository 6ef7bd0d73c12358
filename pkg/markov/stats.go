package markov

import (
	"encoding/json"
	"fmt"
)

// Stats holds summary figures for a finished follow table.
type Stats struct {
	TotalTokens           int          `json:"total_tokens"`            // Tokens seen in the input, punctuation included.
	UniqueNGrams          int          `json:"unique_ngrams"`           // Distinct prefixes in the final table.
	TotalNGramOccurrences int          `json:"total_ngram_occurrences"` // Sum of every follower count.
	MostCommonNGram       *NGramCount  `json:"most_common_ngram,omitempty"`
	MostPopularPrefix     *PrefixCount `json:"most_popular_prefix,omitempty"`
}

// NGramCount is a single (prefix, follower) pair and how often it was seen.
// It encodes as the JSON array [[prefix...], follower, count].
type NGramCount struct {
	Prefix   []string
	Follower string
	Count    int
}

// PrefixCount is a prefix and the sum of its follower counts.
// It encodes as the JSON array [[prefix...], count].
type PrefixCount struct {
	Prefix []string
	Count  int
}

// NewStats computes statistics over entries in output order. When several
// candidates share the maximum, the one that comes first in that order wins.
func NewStats(totalTokens int, entries []Entry) Stats {
	stats := Stats{
		TotalTokens:  totalTokens,
		UniqueNGrams: len(entries),
	}

	for _, e := range entries {
		total := 0
		for _, f := range e.Followers {
			total += f.Count
			if stats.MostCommonNGram == nil || f.Count > stats.MostCommonNGram.Count {
				stats.MostCommonNGram = &NGramCount{Prefix: e.Prefix, Follower: f.Word, Count: f.Count}
			}
		}
		stats.TotalNGramOccurrences += total

		if stats.MostPopularPrefix == nil || total > stats.MostPopularPrefix.Count {
			stats.MostPopularPrefix = &PrefixCount{Prefix: e.Prefix, Count: total}
		}
	}

	return stats
}

func (c NGramCount) MarshalJSON() ([]byte, error) {
	prefix := c.Prefix
	if prefix == nil {
		prefix = []string{}
	}
	return json.Marshal([]any{prefix, c.Follower, c.Count})
}

func (c *NGramCount) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("most common n-gram: expected 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &c.Prefix); err != nil {
		return fmt.Errorf("most common n-gram prefix: %w", err)
	}
	if err := json.Unmarshal(raw[1], &c.Follower); err != nil {
		return fmt.Errorf("most common n-gram follower: %w", err)
	}
	if err := json.Unmarshal(raw[2], &c.Count); err != nil {
		return fmt.Errorf("most common n-gram count: %w", err)
	}
	return nil
}

func (c PrefixCount) MarshalJSON() ([]byte, error) {
	prefix := c.Prefix
	if prefix == nil {
		prefix = []string{}
	}
	return json.Marshal([]any{prefix, c.Count})
}

func (c *PrefixCount) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("most popular prefix: expected 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &c.Prefix); err != nil {
		return fmt.Errorf("most popular prefix words: %w", err)
	}
	if err := json.Unmarshal(raw[1], &c.Count); err != nil {
		return fmt.Errorf("most popular prefix count: %w", err)
	}
	return nil
}
