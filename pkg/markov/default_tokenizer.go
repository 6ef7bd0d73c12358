package markov

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultTokenizer is the default implementation of the Tokenizer interface.
// It scans a line character by character, building words out of ASCII letters and
// apostrophes, and emits configured punctuation characters as their own tokens.
// Quote marks are stripped from word edges while contraction and possessive
// apostrophes are kept. Its behavior can be customized with functional options.
type DefaultTokenizer struct {
	rules Rules
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithRules sets the full rule set used for classification and cleanup.
// Default: DefaultRules(DefaultPunctuation)
func WithRules(rules Rules) Option {
	return func(t *DefaultTokenizer) {
		t.rules = rules
	}
}

// WithPunctuation sets the characters that are preserved as standalone tokens.
// Default: ",."
func WithPunctuation(punctuation string) Option {
	return func(t *DefaultTokenizer) {
		t.rules = t.rules.WithPunctuation(punctuation)
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		rules: DefaultRules(DefaultPunctuation),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Rules returns the rule set the tokenizer was built with.
func (t *DefaultTokenizer) Rules() Rules {
	return t.rules
}

// Tokenize splits a line into word and punctuation tokens.
func (t *DefaultTokenizer) Tokenize(line string) []string {
	if t.rules.EndOfText != "" {
		line = strings.ReplaceAll(line, t.rules.EndOfText, " ")
	}

	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word, ok := t.cleanWord(current.String()); ok {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, c := range line {
		c = t.foldRune(normalizeApostrophe(c))
		if isASCIILetter(c) || c == '\'' {
			current.WriteRune(c)
			continue
		}
		flush()
		if t.rules.IsPunctuation(c) {
			tokens = append(tokens, string(c))
		}
	}
	flush()

	return tokens
}

// cleanWord strips quote apostrophes from a candidate word and applies the
// discard rules. The boolean is false when the candidate must be dropped.
func (t *DefaultTokenizer) cleanWord(candidate string) (string, bool) {
	// Leading apostrophes are always opening quotes.
	word := strings.TrimLeft(candidate, "'")

	for strings.HasSuffix(word, "'") && !t.rules.HasContractionSuffix(word) {
		word = word[:len(word)-1]
	}

	if word == "" || unicode.IsDigit(rune(word[0])) {
		return "", false
	}
	if t.rules.EndOfText != "" && word == t.rules.EndOfText {
		return "", false
	}

	lower := strings.ToLower(word)
	if lower != "i" && isRomanNumeral(lower) {
		return "", false
	}

	return word, true
}

// foldRune replaces a non-ASCII character with its NFKC compatibility form when
// that form is a single ASCII letter, so full-width letters join words. Anything
// else is left alone and splits words like any other unknown character.
func (t *DefaultTokenizer) foldRune(c rune) rune {
	if !t.rules.FoldUnicode || c < utf8.RuneSelf {
		return c
	}
	folded := norm.NFKC.String(string(c))
	if r, size := utf8.DecodeRuneInString(folded); size == len(folded) && isASCIILetter(r) {
		return r
	}
	return c
}

func normalizeApostrophe(c rune) rune {
	switch c {
	case '‘', '’', '′':
		return '\''
	}
	return c
}

func isASCIILetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isRomanNumeral reports whether a lowercase word is spelled only with the
// letters used by Roman numerals.
func isRomanNumeral(lower string) bool {
	if lower == "" {
		return false
	}
	for _, c := range lower {
		switch c {
		case 'i', 'v', 'x', 'l', 'c', 'd', 'm':
		default:
			return false
		}
	}
	return true
}
