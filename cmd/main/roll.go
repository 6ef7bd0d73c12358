package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/ANUcybernetics/my-first-lm/pkg/booklet"
	"github.com/ANUcybernetics/my-first-lm/pkg/markov"
	"github.com/dustin/go-humanize"
)

type rollOptions struct {
	Model    string
	Format   string
	RunID    string
	Seed     []string
	Length   int
	Count    int
	RandSeed uint64
	StopAt   []string
	LogLevel string
}

func parseRollFlags(args []string, stderr io.Writer) (*rollOptions, error) {
	fs := flag.NewFlagSet("roll", flag.ContinueOnError)
	fs.SetOutput(stderr)

	format := fs.String("format", "json", "table format: json or sqlite")
	runID := fs.String("run", "", "run id to load from a sqlite store; lists runs when empty")
	seed := fs.String("seed", "", "starting words; a random row is used when empty")
	length := fs.Int("length", 50, "maximum number of words to generate")
	count := fs.Int("count", 1, "number of passages to generate")
	randSeed := fs.Uint64("rand", 0, "random seed for reproducible rolls; 0 picks one")
	stopAt := fs.String("stop", ".", "tokens that end a passage, space separated")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("%w: roll expects one model file", errUsage)
	}
	if *format != "json" && *format != "sqlite" {
		return nil, fmt.Errorf("%w: unknown table format %q", errUsage, *format)
	}

	return &rollOptions{
		Model:    fs.Arg(0),
		Format:   *format,
		RunID:    *runID,
		Seed:     strings.Fields(*seed),
		Length:   *length,
		Count:    max(*count, 1),
		RandSeed: *randSeed,
		StopAt:   strings.Fields(*stopAt),
		LogLevel: *logLevel,
	}, nil
}

func runRoll(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseRollFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, (&Config{LogLevel: opts.LogLevel}).Level())

	var table *markov.Table
	switch opts.Format {
	case "sqlite":
		if opts.RunID == "" {
			return listRuns(ctx, opts.Model, stdout)
		}
		if table, err = loadStoredTable(ctx, opts.Model, opts.RunID); err != nil {
			return err
		}
	default:
		if table, err = loadJSONTable(opts.Model); err != nil {
			return err
		}
	}
	table.SetLogger(logger)

	randSeed := opts.RandSeed
	if randSeed == 0 {
		randSeed = rand.Uint64()
	}
	logger.Debug("Rolling", "model", opts.Model, "rows", table.Len(), "seed", randSeed)
	rnd := rand.New(rand.NewPCG(randSeed, randSeed))

	for range opts.Count {
		text, err := table.Generate(ctx, opts.Seed,
			markov.WithMaxLength(opts.Length),
			markov.WithRand(rnd),
			markov.WithStopAt(opts.StopAt...),
		)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout, text)
	}
	return nil
}

func loadJSONTable(path string) (*markov.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open model: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := booklet.ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc.Table(), nil
}

func openStore(path string) (*booklet.Store, func(), error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("could not open store: %w", err)
	}
	db, err := initDB(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = booklet.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup booklet schema: %w", err)
	}
	store, err := booklet.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() {
		store.Close()
		_ = db.Close()
	}, nil
}

func loadStoredTable(ctx context.Context, path, runID string) (*markov.Table, error) {
	store, closeStore, err := openStore(path)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return store.LoadTable(ctx, runID)
}

func listRuns(ctx context.Context, path string, w io.Writer) error {
	store, closeStore, err := openStore(path)
	if err != nil {
		return err
	}
	defer closeStore()

	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintf(w, "No runs stored in '%s'\n", path)
		return nil
	}
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s  %-8s %s books, %s rows  %q by %s  (%s)\n",
			r.ID, booklet.ModelTypeName(r.N), humanize.Comma(int64(r.Books)), humanize.Comma(int64(r.Rows)),
			r.Title, r.Author, humanize.Time(r.CreatedAt))
	}
	return nil
}
