package booklet

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderJobArgs(t *testing.T) {
	job := RenderJob{Model: "out/model.json", PDF: "out/model.pdf"}
	assert.Equal(t, []string{"compile", "--input", "model=out/model.json", "book.typ", "out/model.pdf"}, job.Args("book.typ"))

	job.Subtitle = "A-K (book 1 of 3)"
	assert.Equal(t, []string{
		"compile", "--input", "model=out/model.json", "--input", "subtitle=A-K (book 1 of 3)", "book.typ", "out/model.pdf",
	}, job.Args("book.typ"))
}

func TestNewRenderJobs(t *testing.T) {
	volumes := []Volume{{Label: "A-K"}, {Label: "L-Z"}}
	jobs := NewRenderJobs([]string{"out/m_book_1.json", "out/m_book_2.json"}, volumes)
	require.Len(t, jobs, 2)
	assert.Equal(t, "out/m_book_1.pdf", jobs[0].PDF)
	assert.Equal(t, "A-K (book 1 of 2)", jobs[0].Subtitle)
	assert.Equal(t, "L-Z (book 2 of 2)", jobs[1].Subtitle)

	single := NewRenderJobs([]string{"model.json"}, volumes[:1])
	assert.Empty(t, single[0].Subtitle)
}

// fakeTypst writes a shell script that behaves like the typesetter for tests.
func fakeTypst(t *testing.T, body string) string {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "typst")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	// The last argument is the PDF path; record the full argument list there.
	command := fakeTypst(t, `for last; do :; done; echo "$@" > "$last"`)

	jobs := []RenderJob{
		{Model: filepath.Join(dir, "a.json"), PDF: filepath.Join(dir, "a.pdf"), Subtitle: "A (book 1 of 2)"},
		{Model: filepath.Join(dir, "b.json"), PDF: filepath.Join(dir, "b.pdf"), Subtitle: "B (book 2 of 2)"},
	}
	r := NewRenderer(command, "book.typ", 2)
	require.NoError(t, r.Render(context.Background(), jobs))

	var outputs []string
	for _, job := range jobs {
		data, err := os.ReadFile(job.PDF)
		require.NoError(t, err)
		outputs = append(outputs, strings.TrimSpace(string(data)))
	}
	sort.Strings(outputs)
	assert.Contains(t, outputs[0], "subtitle=A (book 1 of 2) book.typ")
	assert.Contains(t, outputs[1], "model="+jobs[1].Model)
}

func TestRenderFailure(t *testing.T) {
	command := fakeTypst(t, `echo "error: template not found" >&2; exit 1`)

	r := NewRenderer(command, "missing.typ", 1)
	err := r.Render(context.Background(), []RenderJob{{Model: "m.json", PDF: "m.pdf"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template not found")
	assert.Contains(t, err.Error(), "m.pdf")
}
