package markov

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// keySep joins prefix words into map keys. It can never appear inside a token.
const keySep = "\x1f"

// maxLineLength bounds a single input line so a file without newlines cannot
// exhaust memory.
const maxLineLength = 16 << 20

// prefixCounts is the follower table row for one prefix, keyed by the
// spelling observed while streaming.
type prefixCounts struct {
	prefix    []string
	followers map[string]int
}

// Counter accumulates overlapping n-gram observations from a stream of lines.
// The window carries across line boundaries, so a document is one continuous
// token stream.
//
// A Counter lives for a single run and is not safe for concurrent use.
type Counter struct {
	n          int
	rules      Rules
	tokenizer  Tokenizer
	normalizer *CaseNormalizer
	logger     *slog.Logger

	window []string
	table  map[string]*prefixCounts

	totalTokens      int
	totalOccurrences int
	linesProcessed   int
}

// CounterOption configures a Counter.
type CounterOption func(*Counter)

// WithTokenizer replaces the tokenizer used to split lines.
// Default: NewDefaultTokenizer(WithRules(rules))
func WithTokenizer(t Tokenizer) CounterOption {
	return func(c *Counter) {
		c.tokenizer = t
	}
}

// WithCounterRules sets the rule set shared by the default tokenizer and the
// case normalizer.
// Default: DefaultRules(DefaultPunctuation)
func WithCounterRules(rules Rules) CounterOption {
	return func(c *Counter) {
		c.rules = rules
	}
}

// WithCounterLogger sets the logger. The default discards everything.
func WithCounterLogger(logger *slog.Logger) CounterOption {
	return func(c *Counter) {
		c.logger = logger
	}
}

// NewCounter creates a counter for n-grams of size n. Values of n below 2 are
// raised to 2 with a warning, since a model needs at least one word of prefix.
func NewCounter(n int, opts ...CounterOption) *Counter {
	c := &Counter{
		rules:  DefaultRules(DefaultPunctuation),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		table:  make(map[string]*prefixCounts),
	}
	for _, opt := range opts {
		opt(c)
	}

	if n < 2 {
		c.logger.Warn("n-gram size below 2, using 2",
			slog.Int("requested", n),
		)
		n = 2
	}
	c.n = n
	c.window = make([]string, 0, n-1)

	if c.tokenizer == nil {
		c.tokenizer = NewDefaultTokenizer(WithRules(c.rules))
	}
	c.normalizer = NewCaseNormalizer(c.rules)

	return c
}

// SetLogger replaces the logger after construction.
func (c *Counter) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// N returns the effective n-gram size.
func (c *Counter) N() int {
	return c.n
}

// TotalTokens returns the number of tokens seen so far.
func (c *Counter) TotalTokens() int {
	return c.totalTokens
}

// TotalOccurrences returns the number of (prefix, follower) observations recorded.
func (c *Counter) TotalOccurrences() int {
	return c.totalOccurrences
}

// ProcessLine tokenizes one line and slides the window over its tokens.
func (c *Counter) ProcessLine(line string) {
	for _, raw := range c.tokenizer.Tokenize(line) {
		c.observe(c.normalizer.Canonicalize(raw))
	}
	c.linesProcessed++
}

// observe records current as a follower of the window, then advances the window.
func (c *Counter) observe(current string) {
	c.totalTokens++

	if len(c.window) == c.n-1 {
		key := strings.Join(c.window, keySep)
		row, ok := c.table[key]
		if !ok {
			row = &prefixCounts{
				prefix:    append([]string(nil), c.window...),
				followers: make(map[string]int),
			}
			c.table[key] = row
		}
		row.followers[current]++
		c.totalOccurrences++

		copy(c.window, c.window[1:])
		c.window = c.window[:len(c.window)-1]
	}
	c.window = append(c.window, current)
}

// Process reads r line by line until EOF. The context is checked between lines.
func (c *Counter) Process(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.ProcessLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	c.logger.DebugContext(ctx, "Input processed",
		slog.Int("lines", c.linesProcessed),
		slog.Int("tokens", c.totalTokens),
		slog.Int("prefixes", len(c.table)),
		slog.Int("case_forms", c.normalizer.Len()),
	)
	return nil
}

// Entries returns the follower table re-keyed through the final canonical
// spellings, with collisions merged and everything sorted for output.
// It does not modify the counter, so repeated calls return equal results.
func (c *Counter) Entries() []Entry {
	merged := make(map[string]*prefixCounts, len(c.table))

	for _, row := range c.table {
		prefix := make([]string, len(row.prefix))
		for i, word := range row.prefix {
			prefix[i] = c.normalizer.Resolve(word)
		}
		key := strings.Join(prefix, keySep)

		target, ok := merged[key]
		if !ok {
			target = &prefixCounts{prefix: prefix, followers: make(map[string]int, len(row.followers))}
			merged[key] = target
		}
		for word, count := range row.followers {
			target.followers[c.normalizer.Resolve(word)] += count
		}
	}

	entries := make([]Entry, 0, len(merged))
	for _, row := range merged {
		followers := make([]Follower, 0, len(row.followers))
		for word, count := range row.followers {
			followers = append(followers, Follower{Word: word, Count: count})
		}
		sortFollowers(followers)
		entries = append(entries, Entry{Prefix: row.prefix, Followers: followers})
	}
	SortEntries(entries)

	return entries
}

// Stats summarizes the final table.
func (c *Counter) Stats() Stats {
	return NewStats(c.totalTokens, c.Entries())
}
