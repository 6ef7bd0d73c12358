package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ANUcybernetics/my-first-lm/pkg/booklet"
	"github.com/ANUcybernetics/my-first-lm/pkg/markov"
	"github.com/dustin/go-humanize"
)

// parseBuildFlags loads the config file named by -config and lays any flags
// given on the command line over it.
func parseBuildFlags(args []string, stderr io.Writer) (*Config, string, error) {
	defaults := DefaultConfig()
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "JSON config file")
	writeConfig := fs.String("write-config", "", "write the effective config to this path")
	output := fs.String("o", defaults.Output, "output JSON file or sqlite database")
	n := fs.Int("n", defaults.N, "n-gram size (2 for bigrams, 3 for trigrams)")
	dice := fs.Int("dice", defaults.Dice, "die size for d-scaling; 0 scales every row to a digit range")
	books := fs.Int("b", defaults.Books, "number of books to split the output into")
	raw := fs.Bool("raw", defaults.Raw, "write raw counts without scaling")
	punctuation := fs.String("punctuation", defaults.Punctuation, "punctuation characters kept as tokens")
	format := fs.String("format", defaults.Format, "output format: json or sqlite")
	minCount := fs.Int("min-count", defaults.MinCount, "drop follower links seen fewer times than this")
	typst := fs.Bool("typst", defaults.Typst.Enabled, "render each book to PDF with typst")
	typstTemplate := fs.String("typst-template", defaults.Typst.Template, "typst template file")
	logLevel := fs.String("log-level", defaults.LogLevel, "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		return nil, "", err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			config.Output = *output
		case "n":
			config.N = *n
		case "dice":
			config.Dice = *dice
		case "b":
			config.Books = *books
		case "raw":
			config.Raw = *raw
		case "punctuation":
			config.Punctuation = *punctuation
		case "format":
			config.Format = *format
		case "min-count":
			config.MinCount = *minCount
		case "typst":
			config.Typst.Enabled = *typst
		case "typst-template":
			config.Typst.Template = *typstTemplate
		case "log-level":
			config.LogLevel = *logLevel
		}
	})

	switch fs.NArg() {
	case 0:
	case 1:
		config.Input = fs.Arg(0)
	default:
		return nil, "", fmt.Errorf("%w: expected one input file, got %d", errUsage, fs.NArg())
	}

	return config, *writeConfig, nil
}

func runBuild(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	config, writeConfig, err := parseBuildFlags(args, stderr)
	if err != nil {
		return err
	}
	if writeConfig != "" {
		if err = WriteConfig(writeConfig, config); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Wrote config to '%s'\n", writeConfig)
		if config.Input == "" {
			return nil
		}
	}
	if config.Input == "" {
		return fmt.Errorf("%w: no input file", errUsage)
	}
	if err = config.Validate(); err != nil {
		return err
	}

	logger := newLogger(stderr, config.Level())
	result, err := build(ctx, config, logger)
	if err != nil {
		return err
	}
	printSummary(stdout, config, result)
	return nil
}

// buildResult is what a finished build reports back for the summary.
type buildResult struct {
	Metadata booklet.Metadata
	Stats    markov.Stats
	Volumes  []booklet.Volume
	Paths    []string
	RunID    string
	PDFs     []string
}

// build runs the whole pipeline: front matter, counting, pruning, splitting,
// scaling, writing and the optional render.
func build(ctx context.Context, config *Config, logger *slog.Logger) (*buildResult, error) {
	f, err := os.Open(config.Input)
	if err != nil {
		return nil, fmt.Errorf("could not open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	header, err := booklet.ReadFrontMatter(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.Input, err)
	}

	counter := markov.NewCounter(config.N,
		markov.WithCounterRules(markov.DefaultRules(config.Punctuation)),
		markov.WithCounterLogger(logger),
	)
	if err = counter.Process(ctx, r); err != nil {
		return nil, fmt.Errorf("could not count %s: %w", config.Input, err)
	}

	entries := markov.Prune(counter.Entries(), config.MinCount)
	stats := markov.NewStats(counter.TotalTokens(), entries)

	meta := booklet.NewMetadata(header, counter.N(), Version)
	meta.Stats = &stats
	books := markov.SplitBooks(entries, config.Books)
	for i, b := range books {
		logger.Debug("Book split", "book", i+1, "label", b.Label, "entries", len(b.Entries))
	}
	volumes := booklet.NewVolumes(meta, books, markov.ScaleOptions{Dice: config.Dice, Raw: config.Raw})

	result := &buildResult{Metadata: meta, Stats: stats, Volumes: volumes}

	switch config.Format {
	case "sqlite":
		if result.RunID, err = writeStore(ctx, config.Output, volumes, logger); err != nil {
			return nil, err
		}
		return result, nil
	default:
		result.Paths = booklet.BookPaths(config.Output, len(volumes))
		for i, v := range volumes {
			if err = booklet.WriteJSON(result.Paths[i], v.Document()); err != nil {
				return nil, err
			}
			logger.Info("Book written", "path", result.Paths[i], "label", v.Label, "rows", len(v.Entries))
		}
	}

	if config.Typst.Enabled {
		jobs := booklet.NewRenderJobs(result.Paths, volumes)
		renderer := booklet.NewRenderer(config.Typst.Command, config.Typst.Template, config.Typst.Parallelism)
		renderer.SetLogger(logger)
		if err = renderer.Render(ctx, jobs); err != nil {
			return nil, fmt.Errorf("%w (make sure typst is installed and in your PATH)", err)
		}
		for _, job := range jobs {
			result.PDFs = append(result.PDFs, job.PDF)
		}
	}

	return result, nil
}

func writeStore(ctx context.Context, path string, volumes []booklet.Volume, logger *slog.Logger) (string, error) {
	db, err := initDB(path)
	if err != nil {
		return "", fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err = booklet.SetupSchema(db); err != nil {
		return "", fmt.Errorf("failed to setup booklet schema: %w", err)
	}
	store, err := booklet.NewStore(db)
	if err != nil {
		return "", err
	}
	defer store.Close()
	store.SetLogger(logger)

	return store.WriteBooks(ctx, volumes)
}

func printSummary(w io.Writer, config *Config, result *buildResult) {
	if result.RunID != "" {
		_, _ = fmt.Fprintf(w, "Stored %d book(s) in '%s' as run %s\n", len(result.Volumes), config.Output, result.RunID)
	}
	for i, path := range result.Paths {
		if len(result.Paths) > 1 {
			_, _ = fmt.Fprintf(w, "Successfully wrote book %d (%s) to '%s'\n", i+1, result.Volumes[i].Label, path)
		} else {
			_, _ = fmt.Fprintf(w, "Successfully wrote output to '%s'\n", path)
		}
	}
	for _, pdf := range result.PDFs {
		_, _ = fmt.Fprintf(w, "Successfully created PDF: %s\n", pdf)
	}

	if config.Raw {
		_, _ = fmt.Fprintln(w, "Output raw counts without scaling")
	} else if config.Dice > 0 {
		_, _ = fmt.Fprintf(w, "Applied count scaling with d=%d\n", config.Dice)
	} else {
		_, _ = fmt.Fprintln(w, "Applied digit-range scaling")
	}

	meta := result.Metadata
	_, _ = fmt.Fprintf(w, "\nDocument Metadata:\n------------------\nTitle: %s\nAuthor: %s\nURL: %s\n", meta.Title, meta.Author, meta.URL)

	s := result.Stats
	n := meta.N
	_, _ = fmt.Fprint(w, "\nSummary Statistics:\n-------------------\n")
	_, _ = fmt.Fprintf(w, "Total tokens in text: %s\n", humanize.Comma(int64(s.TotalTokens)))
	_, _ = fmt.Fprintf(w, "Unique %d-gram prefixes: %s\n", n-1, humanize.Comma(int64(s.UniqueNGrams)))
	_, _ = fmt.Fprintf(w, "Total %d-gram occurrences: %s\n", n, humanize.Comma(int64(s.TotalNGramOccurrences)))
	if c := s.MostCommonNGram; c != nil {
		_, _ = fmt.Fprintf(w, "Most common %d-gram: '%s' followed by '%s' (%s occurrences)\n",
			n, strings.Join(c.Prefix, " "), c.Follower, humanize.Comma(int64(c.Count)))
	}
	if p := s.MostPopularPrefix; p != nil {
		_, _ = fmt.Fprintf(w, "Prefix with most followers: '%s' (%s total followers)\n",
			strings.Join(p.Prefix, " "), humanize.Comma(int64(p.Count)))
	}
}
