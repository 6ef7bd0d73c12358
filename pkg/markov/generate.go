package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrUnknownPrefix is returned when a seed ends in a prefix the table does not contain.
	ErrUnknownPrefix = errors.New("prefix not found in table")
	// ErrSeedTooShort is returned when a non-empty seed has fewer than n-1 words.
	ErrSeedTooShort = errors.New("seed shorter than prefix length")
	// ErrEmptyTable is returned when generating from a table with no usable rows.
	ErrEmptyTable = errors.New("table has no entries with followers")
)

// Table is a read-only follow table that picks followers by die roll, the way
// a reader of the printed book would.
type Table struct {
	n      int
	rows   map[string]ScaledEntry
	starts []string
	logger *slog.Logger
}

// NewTable indexes scaled entries for lookup. n is the n-gram size the entries
// were built with.
func NewTable(n int, scaled []ScaledEntry) *Table {
	t := &Table{
		n:      n,
		rows:   make(map[string]ScaledEntry, len(scaled)),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, s := range scaled {
		key := strings.Join(s.Prefix, keySep)
		if _, dup := t.rows[key]; !dup && len(s.Followers) > 0 {
			t.starts = append(t.starts, key)
		}
		t.rows[key] = s
	}
	return t
}

// SetLogger sets the logger used for generation diagnostics.
func (t *Table) SetLogger(logger *slog.Logger) {
	t.logger = logger
}

// N returns the n-gram size of the table.
func (t *Table) N() int {
	return t.n
}

// Len returns the number of prefixes in the table.
func (t *Table) Len() int {
	return len(t.rows)
}

// Lookup returns the row for prefix.
func (t *Table) Lookup(prefix []string) (ScaledEntry, bool) {
	row, ok := t.rows[strings.Join(prefix, keySep)]
	return row, ok
}

// RollRange returns the inclusive range of rolls accepted for a row. Digit-range
// rows start at 0; dice and raw rows start at 1.
func RollRange(row ScaledEntry) (lo, hi int, ok bool) {
	if len(row.Followers) == 0 || row.Total <= 0 {
		return 0, 0, false
	}
	if row.Strategy == StrategyDigits {
		return 0, row.Total, true
	}
	return 1, row.Total, true
}

// Pick returns the first follower of prefix whose cumulative value is at least roll.
func (t *Table) Pick(prefix []string, roll int) (string, bool) {
	row, ok := t.Lookup(prefix)
	if !ok {
		return "", false
	}
	for _, f := range row.Followers {
		if f.Value >= roll {
			return f.Word, true
		}
	}
	return "", false
}

// generateOptions Is used by Generate to configure default options.
type generateOptions struct {
	maxLength int
	rnd       *rand.Rand
	stopAt    map[string]struct{}
}

// GenerateOption is a function that configures generation parameters.
type GenerateOption func(*generateOptions)

// WithMaxLength sets the maximum number of tokens to generate after the seed.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithRand sets the random source used for rolls, for reproducible output.
func WithRand(r *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rnd = r }
}

// WithStopAt ends generation right after any of the given tokens is produced.
func WithStopAt(tokens ...string) GenerateOption {
	return func(o *generateOptions) {
		o.stopAt = make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			o.stopAt[tok] = struct{}{}
		}
	}
}

// Generate walks the table by rolling for each next word and returns the text.
// With an empty seed a random row starts the walk; otherwise the last n-1 seed
// words must be a prefix in the table. Generation stops at maxLength, at a stop
// token, or when the current prefix has no row.
func (t *Table) Generate(ctx context.Context, seed []string, opts ...GenerateOption) (string, error) {
	options := &generateOptions{
		maxLength: 100,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.rnd == nil {
		options.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	order := t.n - 1
	var words []string
	switch {
	case len(seed) == 0:
		if len(t.starts) == 0 {
			return "", ErrEmptyTable
		}
		start := t.rows[t.starts[options.rnd.IntN(len(t.starts))]]
		words = append(words, start.Prefix...)
	case len(seed) < order:
		return "", fmt.Errorf("%w: got %d words, need %d", ErrSeedTooShort, len(seed), order)
	default:
		words = append(words, seed...)
		if _, ok := t.Lookup(words[len(words)-order:]); !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownPrefix, strings.Join(words[len(words)-order:], " "))
		}
	}

	generated := 0
	for generated < options.maxLength {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		prefix := words[len(words)-order:]
		row, _ := t.Lookup(prefix)
		lo, hi, ok := RollRange(row)
		if !ok {
			t.logger.DebugContext(ctx, "Generation terminated due to dead-end",
				slog.String("last_prefix", strings.Join(prefix, " ")),
				slog.Int("generated_length", generated),
			)
			break
		}

		roll := lo + options.rnd.IntN(hi-lo+1)
		next, _ := t.Pick(prefix, roll)
		words = append(words, next)
		generated++

		if _, stop := options.stopAt[next]; stop {
			t.logger.DebugContext(ctx, "Generation terminated by stop token",
				slog.String("token", next),
				slog.Int("generated_length", generated),
			)
			break
		}
	}

	return JoinTokens(words), nil
}

// JoinTokens renders tokens as text, with no space before punctuation.
func JoinTokens(tokens []string) string {
	var builder strings.Builder
	for i, tok := range tokens {
		if i > 0 && !isPunctuationToken(tok) {
			builder.WriteByte(' ')
		}
		builder.WriteString(tok)
	}
	return builder.String()
}

func isPunctuationToken(tok string) bool {
	r, size := utf8.DecodeRuneInString(tok)
	return size == len(tok) && size > 0 && !unicode.IsLetter(r)
}
