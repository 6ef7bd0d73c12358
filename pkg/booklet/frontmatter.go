package booklet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

var (
	// ErrNoFrontMatter is returned when a document does not open with a "---" line.
	ErrNoFrontMatter = errors.New("document does not start with front matter")
	// ErrUnterminatedFrontMatter is returned when the closing "---" line is missing.
	ErrUnterminatedFrontMatter = errors.New("front matter is not terminated")
	// ErrInvalidFrontMatter is returned when the header is not valid YAML.
	ErrInvalidFrontMatter = errors.New("front matter is not valid YAML")
	// ErrMissingField is returned, once per field, when a required header field is empty.
	ErrMissingField = errors.New("missing required front matter field")
)

// Header is the document metadata carried in the YAML front matter.
type Header struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	URL    string `yaml:"url"`
}

// Validate reports every required field that is empty, joined into one error.
func (h *Header) Validate() error {
	var errs []error
	for _, field := range []struct{ name, value string }{
		{"title", h.Title},
		{"author", h.Author},
		{"url", h.URL},
	} {
		if strings.TrimSpace(field.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingField, field.name))
		}
	}
	return errors.Join(errs...)
}

// ReadFrontMatter consumes the YAML header from r and leaves r positioned at the
// first line of the body. Blank lines before the opening delimiter are skipped.
func ReadFrontMatter(r *bufio.Reader) (*Header, error) {
	opened := false
	for !opened {
		line, err := readLine(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoFrontMatter
			}
			return nil, fmt.Errorf("failed to read front matter: %w", err)
		}
		line = strings.TrimPrefix(line, "\ufeff")
		switch strings.TrimSpace(line) {
		case "":
			continue
		case frontMatterDelimiter:
			opened = true
		default:
			return nil, ErrNoFrontMatter
		}
	}

	var raw strings.Builder
	for {
		line, err := readLine(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrUnterminatedFrontMatter
			}
			return nil, fmt.Errorf("failed to read front matter: %w", err)
		}
		if strings.TrimSpace(line) == frontMatterDelimiter {
			break
		}
		raw.WriteString(line)
		raw.WriteByte('\n')
	}

	var h Header
	if err := yaml.Unmarshal([]byte(raw.String()), &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFrontMatter, err)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

// readLine returns the next line without its terminator. A final line without a
// newline is returned normally; io.EOF is only returned when nothing was read.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
