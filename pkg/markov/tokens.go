package markov

import (
	"slices"
	"strings"
)

// EndOfTextMarker is the literal some corpora use to separate documents.
// Tokens equal to it are never counted.
const EndOfTextMarker = "<|endoftext|>"

// DefaultPunctuation is the set of punctuation characters kept as standalone tokens
// when the caller does not configure one.
const DefaultPunctuation = ",."

// Tokenizer is an interface that defines the contract for splitting a single line of
// prose into word and punctuation tokens. Implementations must be pure: the same
// line always yields the same tokens, in the order they appear.
type Tokenizer interface {
	Tokenize(line string) []string
}

// Rules is the rule set shared by the tokenizer and the case normalizer. It is
// built once per run (usually with DefaultRules) and passed by value, so a run's
// behaviour never depends on hidden package state.
type Rules struct {
	// Punctuation holds the characters emitted as standalone one-character tokens.
	Punctuation map[rune]struct{}
	// CaseExceptions maps a lowercase spelling to the spelling it is always rendered with.
	CaseExceptions map[string]string
	// ContractionSuffixes protect a trailing apostrophe from being stripped.
	ContractionSuffixes []string
	// EndOfText is dropped wherever it appears as a token.
	EndOfText string
	// FoldUnicode maps characters whose NFKC form is a single ASCII letter, such as
	// full-width letters, onto that letter. Other characters are never folded.
	FoldUnicode bool
}

// DefaultRules returns the standard English prose rules with the given punctuation
// characters preserved as tokens.
func DefaultRules(punctuation string) Rules {
	return Rules{
		Punctuation: punctuationSet(punctuation),
		CaseExceptions: map[string]string{
			"i":    "I",
			"i'm":  "I'm",
			"i've": "I've",
			"i'd":  "I'd",
			"i'll": "I'll",
		},
		ContractionSuffixes: []string{
			"'s", "s'", "n't", "'ll", "'ve", "'re", "'d", "'m",
			"in'", "an'", "o'",
		},
		EndOfText:   EndOfTextMarker,
		FoldUnicode: true,
	}
}

// WithPunctuation returns a copy of the rules using a different punctuation set.
func (r Rules) WithPunctuation(punctuation string) Rules {
	r.Punctuation = punctuationSet(punctuation)
	return r
}

// IsPunctuation reports whether c is emitted as a standalone token.
func (r Rules) IsPunctuation(c rune) bool {
	_, ok := r.Punctuation[c]
	return ok
}

// CaseException returns the fixed spelling for a lowercase word, if it has one.
func (r Rules) CaseException(lower string) (string, bool) {
	cased, ok := r.CaseExceptions[lower]
	return cased, ok
}

// HasContractionSuffix reports whether word, compared case-insensitively, ends in
// one of the recognised contraction or possessive suffixes.
func (r Rules) HasContractionSuffix(word string) bool {
	lower := strings.ToLower(word)
	for _, suffix := range r.ContractionSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// PunctuationString returns the punctuation set as a sorted string, mostly for logs.
func (r Rules) PunctuationString() string {
	runes := make([]rune, 0, len(r.Punctuation))
	for c := range r.Punctuation {
		runes = append(runes, c)
	}
	slices.Sort(runes)
	return string(runes)
}

func punctuationSet(punctuation string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(punctuation))
	for _, c := range punctuation {
		set[c] = struct{}{}
	}
	return set
}
