// Package booklet reads source documents and writes finished follow tables:
// YAML front matter in, JSON documents or a sqlite store out, and PDFs through
// an external typst run.
//
// A JSON document is an object with "metadata" and "data" keys. Besides title,
// author, url, n, subtitle, version and stats, the metadata may carry two
// optional keys that templates can read:
//
//   - "dice": the die size rows were scaled to. A row whose total equals it is
//     rolled with that die; other rows use their digit range. Omitted when
//     every row uses a digit range.
//   - "raw": true when rows hold unscaled cumulative counts. Omitted otherwise.
//
// Each data row is ["prefix", total, ["follower", value], ...].
package booklet
