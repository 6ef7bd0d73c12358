package markov

import "strings"

// CaseNormalizer decides the display spelling of each word across a whole run.
// The first spelling seen for a word becomes canonical; once a second spelling
// appears the word is pinned to lowercase for the rest of the run. Words listed
// in Rules.CaseExceptions always render with their fixed spelling.
//
// A CaseNormalizer is not safe for concurrent use.
type CaseNormalizer struct {
	rules     Rules
	canonical map[string]string
}

// NewCaseNormalizer returns an empty normalizer using the given rules.
func NewCaseNormalizer(rules Rules) *CaseNormalizer {
	return &CaseNormalizer{
		rules:     rules,
		canonical: make(map[string]string),
	}
}

// Canonicalize records token and returns the spelling to use for it now.
// Earlier return values may be superseded; call Resolve once the run is complete.
func (n *CaseNormalizer) Canonicalize(token string) string {
	lower := strings.ToLower(token)
	if fixed, ok := n.rules.CaseException(lower); ok {
		return fixed
	}

	stored, seen := n.canonical[lower]
	switch {
	case !seen:
		n.canonical[lower] = token
		return token
	case stored == token:
		return token
	default:
		n.canonical[lower] = lower
		return lower
	}
}

// Resolve returns the final spelling of a word given everything seen so far.
// Words the normalizer never recorded, punctuation included, come back unchanged.
func (n *CaseNormalizer) Resolve(word string) string {
	lower := strings.ToLower(word)
	if fixed, ok := n.rules.CaseException(lower); ok {
		return fixed
	}
	if stored, ok := n.canonical[lower]; ok {
		return stored
	}
	return word
}

// Len returns the number of distinct lowercase spellings recorded.
func (n *CaseNormalizer) Len() int {
	return len(n.canonical)
}
