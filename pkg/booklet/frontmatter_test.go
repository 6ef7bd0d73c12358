package booklet

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFrontMatter(t *testing.T) {
	input := "---\ntitle: Test Document\nauthor: Test Author\nurl: https://example.com\n---\nHello world.\n---\nStill body.\n"
	r := bufio.NewReader(strings.NewReader(input))

	h, err := ReadFrontMatter(r)
	require.NoError(t, err)
	assert.Equal(t, &Header{Title: "Test Document", Author: "Test Author", URL: "https://example.com"}, h)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Hello world.\n---\nStill body.\n", string(body), "a later --- line is ordinary body text")
}

func TestReadFrontMatterLeadingBlankLines(t *testing.T) {
	input := "\ufeff\n  \n---\r\ntitle: T\r\nauthor: A\r\nurl: U\r\n---\r\nbody"
	r := bufio.NewReader(strings.NewReader(input))

	h, err := ReadFrontMatter(r)
	require.NoError(t, err)
	assert.Equal(t, "T", h.Title)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "body", string(body))
}

func TestReadFrontMatterErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		target   error
		contains []string
	}{
		{
			name:   "no front matter",
			input:  "Just a body.\n",
			target: ErrNoFrontMatter,
		},
		{
			name:   "empty document",
			input:  "",
			target: ErrNoFrontMatter,
		},
		{
			name:   "unterminated",
			input:  "---\ntitle: T\nauthor: A\n",
			target: ErrUnterminatedFrontMatter,
		},
		{
			name:   "invalid yaml",
			input:  "---\ntitle: [unclosed\n---\n",
			target: ErrInvalidFrontMatter,
		},
		{
			name:     "missing fields",
			input:    "---\ntitle: T\n---\nbody\n",
			target:   ErrMissingField,
			contains: []string{"author", "url"},
		},
		{
			name:     "blank field",
			input:    "---\ntitle: T\nauthor: \"  \"\nurl: U\n---\n",
			target:   ErrMissingField,
			contains: []string{"author"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrontMatter(bufio.NewReader(strings.NewReader(tt.input)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "expected %v, got %v", tt.target, err)
			for _, field := range tt.contains {
				assert.Contains(t, err.Error(), field)
			}
		})
	}
}

func TestHeaderValidate(t *testing.T) {
	h := &Header{}
	err := h.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
	for _, field := range []string{"title", "author", "url"} {
		assert.Contains(t, err.Error(), field)
	}

	assert.NoError(t, (&Header{Title: "T", Author: "A", URL: "U"}).Validate())
}
