package markov

import (
	"unicode"
	"unicode/utf8"
)

// Book is a contiguous slice of the sorted entry list, output as its own volume.
type Book struct {
	Label   string
	Entries []Entry
}

// SplitBooks partitions sorted entries into at most b contiguous books of
// roughly equal weight, where an entry weighs the sum of its follower counts
// (at least 1). Entries are never split or reordered, and no book is empty.
// With b <= 1 or no entries, a single book holds everything.
func SplitBooks(entries []Entry, b int) []Book {
	if b <= 1 || len(entries) == 0 {
		return []Book{{Label: BookLabel(entries), Entries: entries}}
	}

	totalWeight := 0
	for _, e := range entries {
		totalWeight += entryWeight(e)
	}
	target := float64(totalWeight) / float64(b)

	books := make([]Book, 0, b)
	start := 0
	acc := 0
	for i, e := range entries {
		acc += entryWeight(e)
		if float64(acc) >= target && len(books) < b-1 {
			books = append(books, newBook(entries[start:i+1]))
			start = i + 1
			acc = 0
		}
	}
	if start < len(entries) {
		books = append(books, newBook(entries[start:]))
	}

	return books
}

func newBook(entries []Entry) Book {
	return Book{Label: BookLabel(entries), Entries: entries}
}

func entryWeight(e Entry) int {
	return max(e.Total(), 1)
}

// BookLabel names a run of entries by the first letter of its first and last
// prefixes, for example "A-K", or a single letter when both are the same.
func BookLabel(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	first := leadingLetter(entries[0])
	last := leadingLetter(entries[len(entries)-1])
	if first == last {
		return first
	}
	return first + "-" + last
}

func leadingLetter(e Entry) string {
	if len(e.Prefix) == 0 || e.Prefix[0] == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(e.Prefix[0])
	return string(unicode.ToUpper(r))
}
