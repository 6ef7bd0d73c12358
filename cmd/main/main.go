package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ANUcybernetics/my-first-lm/pkg/booklet"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const usage = `Usage:
  my-first-lm [build] [flags] <input.md>   count a document into follow tables
  my-first-lm roll [flags] <model>         generate text from a built table

Run a subcommand with -h for its flags.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches to a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	command := "build"
	if len(args) > 0 {
		switch args[0] {
		case "build", "roll":
			command, args = args[0], args[1:]
		case "help", "-h", "-help", "--help":
			_, _ = fmt.Fprint(stdout, usage)
			return 0
		case "version", "-version", "--version":
			_, _ = fmt.Fprintf(stdout, "my-first-lm %s (commit %s, built %s)\n", Version, Commit, BuildDate)
			return 0
		}
	}

	var err error
	switch command {
	case "roll":
		err = runRoll(ctx, args, stdout, stderr)
	default:
		err = runBuild(ctx, args, stdout, stderr)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		_, _ = fmt.Fprintf(stderr, "Error: %v\n\n%s", err, usage)
		return 2
	case isFrontMatterError(err):
		_, _ = fmt.Fprintf(stderr, "Error: %v\n%s", err, frontMatterHint)
		return 1
	default:
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

var errUsage = errors.New("bad usage")

const frontMatterHint = `
Your input file must begin with valid YAML front matter:
---
title: Your Document Title
author: Author Name
url: https://example.com/document-url
---

The front matter must appear at the beginning of the file.
`

func isFrontMatterError(err error) bool {
	return errors.Is(err, booklet.ErrNoFrontMatter) ||
		errors.Is(err, booklet.ErrUnterminatedFrontMatter) ||
		errors.Is(err, booklet.ErrInvalidFrontMatter) ||
		errors.Is(err, booklet.ErrMissingField)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
