package markov

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// newTestCounter returns a counter of size n that has processed every line.
func newTestCounter(t testing.TB, n int, lines ...string) *Counter {
	t.Helper()
	c := NewCounter(n)
	for _, line := range lines {
		c.ProcessLine(line)
	}
	return c
}

// findEntry returns the entry for the space-joined prefix, failing the test if absent.
func findEntry(t *testing.T, entries []Entry, prefix string) Entry {
	t.Helper()
	for _, e := range entries {
		if e.Key() == prefix {
			return e
		}
	}
	t.Fatalf("prefix %q not found in entries", prefix)
	return Entry{}
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
// Their comments are enough English prose to exercise the whole pipeline.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
