package booklet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ANUcybernetics/my-first-lm/pkg/markov"
	"github.com/natefinch/atomic"
)

// Metadata describes a model document. Dice and Raw record how rows were
// scaled so a reader can roll against them correctly.
type Metadata struct {
	Title    string        `json:"title"`
	Author   string        `json:"author"`
	URL      string        `json:"url"`
	N        int           `json:"n"`
	Subtitle string        `json:"subtitle"`
	Version  string        `json:"version"`
	Dice     int           `json:"dice,omitempty"`
	Raw      bool          `json:"raw,omitempty"`
	Stats    *markov.Stats `json:"stats,omitempty"`
}

// ModelTypeName returns the conventional name of an n-gram model of size n.
func ModelTypeName(n int) string {
	switch n {
	case 1:
		return "unigram"
	case 2:
		return "bigram"
	case 3:
		return "trigram"
	default:
		return fmt.Sprintf("%d-gram", n)
	}
}

// NewMetadata builds the metadata for a single-volume model.
func NewMetadata(h *Header, n int, version string) Metadata {
	return Metadata{
		Title:    h.Title,
		Author:   h.Author,
		URL:      h.URL,
		N:        n,
		Subtitle: fmt.Sprintf("A %s language model", ModelTypeName(n)),
		Version:  version,
	}
}

// ForBook returns a copy of m with the subtitle of volume index (zero-based)
// out of total, for example "A trigram language model: A–K (Book 1 of 3)".
func (m Metadata) ForBook(label string, index, total int) Metadata {
	m.Subtitle = fmt.Sprintf("A %s language model: %s (Book %d of %d)",
		ModelTypeName(m.N), strings.ReplaceAll(label, "-", "–"), index+1, total)
	return m
}

// Row is one entry of the data array. It encodes as
// ["prefix words", total, ["follower", cumulative], ...].
type Row struct {
	Prefix    string
	Total     int
	Followers []markov.Cumulative
}

func (r Row) MarshalJSON() ([]byte, error) {
	row := make([]any, 0, len(r.Followers)+2)
	row = append(row, r.Prefix, r.Total)
	for _, f := range r.Followers {
		row = append(row, []any{f.Word, f.Value})
	}
	return json.Marshal(row)
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("row has %d elements, need at least 2", len(raw))
	}
	if err := json.Unmarshal(raw[0], &r.Prefix); err != nil {
		return fmt.Errorf("row prefix: %w", err)
	}
	if err := json.Unmarshal(raw[1], &r.Total); err != nil {
		return fmt.Errorf("row total for %q: %w", r.Prefix, err)
	}

	r.Followers = make([]markov.Cumulative, 0, len(raw)-2)
	for _, item := range raw[2:] {
		var pair []json.RawMessage
		if err := json.Unmarshal(item, &pair); err != nil {
			return fmt.Errorf("follower of %q: %w", r.Prefix, err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("follower of %q has %d elements, need 2", r.Prefix, len(pair))
		}
		var f markov.Cumulative
		if err := json.Unmarshal(pair[0], &f.Word); err != nil {
			return fmt.Errorf("follower word of %q: %w", r.Prefix, err)
		}
		if err := json.Unmarshal(pair[1], &f.Value); err != nil {
			return fmt.Errorf("follower value of %q: %w", r.Prefix, err)
		}
		r.Followers = append(r.Followers, f)
	}
	return nil
}

// Document is the JSON file handed to the typesetter.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Data     []Row    `json:"data"`
}

// NewDocument converts scaled entries into rows.
func NewDocument(meta Metadata, scaled []markov.ScaledEntry) Document {
	rows := make([]Row, len(scaled))
	for i, s := range scaled {
		followers := s.Followers
		if followers == nil {
			followers = []markov.Cumulative{}
		}
		rows[i] = Row{Prefix: s.Key(), Total: s.Total, Followers: followers}
	}
	return Document{Metadata: meta, Data: rows}
}

// Scaled converts rows back into scaled entries. The strategy of each row is
// recovered from the metadata: raw documents are raw, rows whose total is the
// die size are dice rows, and everything else used the digit range.
func (d Document) Scaled() []markov.ScaledEntry {
	scaled := make([]markov.ScaledEntry, len(d.Data))
	for i, row := range d.Data {
		s := markov.ScaledEntry{
			Prefix:    strings.Fields(row.Prefix),
			Total:     row.Total,
			Followers: row.Followers,
		}
		switch {
		case len(row.Followers) == 0:
			s.Strategy = markov.StrategyEmpty
		case d.Metadata.Raw:
			s.Strategy = markov.StrategyRaw
		case d.Metadata.Dice > 0 && row.Total == d.Metadata.Dice:
			s.Strategy = markov.StrategyDice
		default:
			s.Strategy = markov.StrategyDigits
		}
		scaled[i] = s
	}
	return scaled
}

// Table builds a roll table from the document.
func (d Document) Table() *markov.Table {
	return markov.NewTable(d.Metadata.N, d.Scaled())
}

// WriteJSON writes doc to path as indented JSON. The file is replaced
// atomically, so readers never observe a partial document.
func WriteJSON(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes a document written by WriteJSON.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

// BookPaths returns the output file for each of count volumes. A single volume
// is written to output itself; several are written next to it as
// <stem>_book_<i>.json.
func BookPaths(output string, count int) []string {
	if count <= 1 {
		return []string{output}
	}
	dir := filepath.Dir(output)
	stem := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
	if stem == "" {
		stem = "model"
	}

	paths := make([]string, count)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("%s_book_%d.json", stem, i+1))
	}
	return paths
}

// Volume is one output book: its metadata and scaled rows.
type Volume struct {
	Label    string
	Metadata Metadata
	Entries  []markov.ScaledEntry
}

// Document returns the JSON document for the volume.
func (v Volume) Document() Document {
	return NewDocument(v.Metadata, v.Entries)
}

// NewVolumes scales each book and gives it its own metadata. A single book
// keeps meta unchanged; several get per-volume subtitles.
func NewVolumes(meta Metadata, books []markov.Book, opts markov.ScaleOptions) []Volume {
	meta.Dice = opts.Dice
	meta.Raw = opts.Raw

	volumes := make([]Volume, len(books))
	for i, b := range books {
		m := meta
		if len(books) > 1 {
			m = meta.ForBook(b.Label, i, len(books))
		}
		volumes[i] = Volume{
			Label:    b.Label,
			Metadata: m,
			Entries:  markov.ScaleEntries(b.Entries, opts),
		}
	}
	return volumes
}
