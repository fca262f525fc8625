// Package document reads and writes the hand-editable YAML documents of the
// archive.
//
// A Document keeps the parsed yaml.Node tree rather than a plain map, so
// comments, key order and scalar styles that a person added by hand survive a
// load-and-save cycle. Encoding a typed value into an existing Document merges
// it into that tree instead of replacing it.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/estate/pkg/fsutil"
)

// Indent is the indentation width used when rendering documents.
const Indent = 2

// ErrEmpty is returned when decoding a document with no content.
var ErrEmpty = errors.New("document: empty document")

// Document is a parsed YAML document.
type Document struct {
	root *yaml.Node
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Parse parses raw YAML. Empty input yields an empty document, not an error.
func Parse(raw []byte) (*Document, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("document: parse error: %w", err)
	}
	if n.Kind == 0 {
		return New(), nil
	}
	return &Document{root: &n}, nil
}

// Load reads and parses the document at path. A missing file is reported
// with an error satisfying errors.Is(err, os.ErrNotExist).
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}
	doc, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return doc, nil
}

// Empty reports whether the document has no content.
func (d *Document) Empty() bool {
	return d.root == nil || len(d.root.Content) == 0
}

// Decode unmarshals the document into v.
func (d *Document) Decode(v interface{}) error {
	if d.Empty() {
		return ErrEmpty
	}
	if err := d.root.Decode(v); err != nil {
		return fmt.Errorf("document: decode error: %w", err)
	}
	return nil
}

// Has reports whether the nested mapping key path exists with a non-null
// value, e.g. Has("vitals", "birth", "date"). "date:" and "date: null"
// count as missing.
func (d *Document) Has(path ...string) bool {
	if d.Empty() {
		return false
	}
	n := d.root.Content[0]
	for _, key := range path {
		v := lookup(n, key)
		if v == nil || isNull(v) {
			return false
		}
		n = v
	}
	return true
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

// Encode marshals v and merges it into the document. Keys present in the
// document keep their position and comments, and keys v does not produce
// are left alone; new keys are appended. A field that must be clearable
// should therefore not use omitempty.
func (d *Document) Encode(v interface{}) error {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return fmt.Errorf("document: serialize error: %w", err)
	}
	if d.Empty() {
		d.root = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{&n}}
		return nil
	}
	merge(d.root.Content[0], &n)
	return nil
}

// Bytes renders the document.
func (d *Document) Bytes() ([]byte, error) {
	if d.Empty() {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(Indent)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("document: render error: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("document: render error: %w", err)
	}
	return buf.Bytes(), nil
}

// Save renders d and writes it atomically through sink.
func Save(sink fsutil.Sink, path string, d *Document) error {
	b, err := d.Bytes()
	if err != nil {
		return err
	}
	return sink.WriteFile(path, b)
}

// SaveValue writes v as a fresh document at path.
func SaveValue(sink fsutil.Sink, path string, v interface{}) error {
	d := New()
	if err := d.Encode(v); err != nil {
		return err
	}
	return Save(sink, path, d)
}
