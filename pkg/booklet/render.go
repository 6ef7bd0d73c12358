package booklet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// RenderJob is one typst compilation: a model document in, a PDF out.
type RenderJob struct {
	Model    string
	PDF      string
	Subtitle string
}

// Args returns the command-line arguments for compiling the job with template.
func (j RenderJob) Args(template string) []string {
	args := []string{"compile", "--input", "model=" + j.Model}
	if j.Subtitle != "" {
		args = append(args, "--input", "subtitle="+j.Subtitle)
	}
	return append(args, template, j.PDF)
}

// NewRenderJobs pairs each written document path with its volume. PDFs are
// written next to their documents. Multi-volume runs get a subtitle such as
// "A-K (book 1 of 3)".
func NewRenderJobs(paths []string, volumes []Volume) []RenderJob {
	jobs := make([]RenderJob, len(paths))
	for i, path := range paths {
		jobs[i] = RenderJob{
			Model: path,
			PDF:   strings.TrimSuffix(path, filepath.Ext(path)) + ".pdf",
		}
		if len(paths) > 1 && i < len(volumes) {
			jobs[i].Subtitle = fmt.Sprintf("%s (book %d of %d)", volumes[i].Label, i+1, len(paths))
		}
	}
	return jobs
}

// Renderer runs an external typesetter over finished documents.
type Renderer struct {
	Command     string
	Template    string
	Parallelism int
	logger      *slog.Logger
}

// NewRenderer returns a renderer that runs command with the given template,
// compiling at most parallelism documents at once.
func NewRenderer(command, template string, parallelism int) *Renderer {
	return &Renderer{
		Command:     command,
		Template:    template,
		Parallelism: parallelism,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger.
func (r *Renderer) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// Render compiles every job. The first failure cancels the jobs still running
// and is returned with the typesetter's output attached.
func (r *Renderer) Render(ctx context.Context, jobs []RenderJob) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Parallelism, 1))

	for _, job := range jobs {
		g.Go(func() error {
			cmd := exec.CommandContext(ctx, r.Command, job.Args(r.Template)...)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return fmt.Errorf("typst compile failed for %s: %w: %s", job.PDF, err, bytes.TrimSpace(out))
			}
			r.logger.InfoContext(ctx, "PDF created", slog.String("pdf", job.PDF))
			return nil
		})
	}
	return g.Wait()
}
