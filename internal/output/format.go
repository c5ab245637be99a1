package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/jsonutil"
)

// Mode selects the shape of emitted records.
type Mode int

const (
	Nested Mode = iota // the document tree as-is
	Flat               // the flattened projection, for indexing
)

// ParseMode maps "nested" or "flat" to a Mode. Unknown strings default to Nested.
func ParseMode(s string) Mode {
	if s == "flat" || s == "flattened" {
		return Flat
	}
	return Nested
}

func (m Mode) String() string {
	if m == Flat {
		return "flat"
	}
	return "nested"
}

// Format returns the record to emit for d.
func Format(d *doc.Doc, mode Mode) map[string]any {
	if mode == Flat {
		return d.Flatten()
	}
	return d.Source()
}

// Encode renders d as a single line of JSON without a trailing newline.
func Encode(d *doc.Doc, mode Mode) []byte {
	return []byte(jsonutil.ToJSONString(Format(d, mode)))
}

// EncodeIndent renders d as indented JSON.
func EncodeIndent(d *doc.Doc, mode Mode) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, Encode(d, mode), "", "  "); err != nil {
		return nil, fmt.Errorf("output: indent: %w", err)
	}
	return buf.Bytes(), nil
}
