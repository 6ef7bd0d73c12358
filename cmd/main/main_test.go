package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/ANUcybernetics/my-first-lm/pkg/booklet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `---
title: Fish
author: Seuss
url: https://example.com/fish
---
One fish two fish. Red fish blue fish.
The fish sat on the mat.
`

// runCLI runs the command line in-process and returns its exit code and output.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildJSON(t *testing.T) {
	input := writeInput(t, testDocument)
	output := filepath.Join(t.TempDir(), "model.json")

	code, stdout, stderr := runCLI(t, "-o", output, "-dice", "6", input)
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "Successfully wrote output to '"+output+"'")
	assert.Contains(t, stdout, "Applied count scaling with d=6")
	assert.Contains(t, stdout, "Title: Fish")
	assert.Contains(t, stdout, "Total tokens in text: 17")
	assert.Contains(t, stdout, "Most common 2-gram: 'fish' followed by '.' (2 occurrences)")

	f, err := os.Open(output)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	doc, err := booklet.ReadJSON(f)
	require.NoError(t, err)
	assert.Equal(t, "A bigram language model", doc.Metadata.Subtitle)
	assert.Equal(t, 6, doc.Metadata.Dice)
	require.NotNil(t, doc.Metadata.Stats)
	assert.Equal(t, 17, doc.Metadata.Stats.TotalTokens)
}

func TestBuildBooks(t *testing.T) {
	input := writeInput(t, testDocument)
	dir := t.TempDir()

	code, stdout, stderr := runCLI(t, "build", "-o", filepath.Join(dir, "model.json"), "-b", "2", input)
	require.Equal(t, 0, code, stderr)

	for _, name := range []string{"model_book_1.json", "model_book_2.json"} {
		assert.FileExists(t, filepath.Join(dir, name))
		assert.Contains(t, stdout, name)
	}
	assert.NoFileExists(t, filepath.Join(dir, "model.json"))
}

func TestBuildThenRoll(t *testing.T) {
	input := writeInput(t, testDocument)
	output := filepath.Join(t.TempDir(), "model.json")

	code, _, stderr := runCLI(t, "-o", output, input)
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := runCLI(t, "roll", "-seed", "two", "-rand", "7", "-count", "2", output)
	require.Equal(t, 0, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "two fish"), "got %q", line)
	}

	_, again, _ := runCLI(t, "roll", "-seed", "two", "-rand", "7", "-count", "2", output)
	assert.Equal(t, stdout, again, "a fixed seed repeats the rolls")
}

func TestBuildSQLiteThenRoll(t *testing.T) {
	input := writeInput(t, testDocument)
	db := filepath.Join(t.TempDir(), "booklets.db")

	code, stdout, stderr := runCLI(t, "-format", "sqlite", "-o", db, "-b", "2", input)
	require.Equal(t, 0, code, stderr)

	match := regexp.MustCompile(`as run ([0-9a-f-]{36})`).FindStringSubmatch(stdout)
	require.Len(t, match, 2, stdout)
	runID := match[1]

	code, stdout, stderr = runCLI(t, "roll", "-format", "sqlite", db)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, runID)
	assert.Contains(t, stdout, `"Fish" by Seuss`)

	code, stdout, stderr = runCLI(t, "roll", "-format", "sqlite", "-run", runID, "-seed", "blue", "-rand", "1", db)
	require.Equal(t, 0, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "blue fish"), "got %q", stdout)

	code, _, stderr = runCLI(t, "roll", "-format", "sqlite", "-run", "nope", db)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "run not found")
}

func TestBuildFrontMatterHint(t *testing.T) {
	input := writeInput(t, "No header here.\n")
	output := filepath.Join(t.TempDir(), "model.json")

	code, _, stderr := runCLI(t, "-o", output, input)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "front matter must appear at the beginning")
	assert.NoFileExists(t, output)
}

func TestBuildWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	code, _, stderr := runCLI(t, "-write-config", path, "-n", "3", "-b", "5")
	require.Equal(t, 0, code, stderr)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, config.N)
	assert.Equal(t, 5, config.Books)

	code, _, stderr = runCLI(t, "-config", path, "-b", "1", "-o", filepath.Join(t.TempDir(), "m.json"), writeInput(t, testDocument))
	require.Equal(t, 0, code, stderr)
}

func TestUsageErrors(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "no input file")

	code, _, _ = runCLI(t, "roll")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "-format", "xml", writeInput(t, testDocument))
	assert.Equal(t, 1, code)

	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "my-first-lm dev")
}
