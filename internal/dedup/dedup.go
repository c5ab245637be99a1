package dedup

import (
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/crimson-sun/timber/internal/convert"
	"github.com/crimson-sun/timber/internal/doc"
)

const (
	DefaultCountField     = "dedup_count"
	DefaultSpanField      = "dedup_span"
	DefaultTimestampField = "@timestamp"
)

// Config controls deduplication behavior.
type Config struct {
	// Window bounds how far apart two duplicates may be. 0 collapses
	// across the whole batch.
	Window time.Duration
	// Fields to fingerprint. Empty means the full flattened projection
	// minus TimestampField.
	Fields         []string
	CountField     string
	SpanField      string
	TimestampField string
}

// Deduplicator collapses documents with identical fingerprints.
type Deduplicator struct {
	cfg Config
}

// New creates a Deduplicator, filling unset field names with defaults.
func New(cfg Config) *Deduplicator {
	if cfg.CountField == "" {
		cfg.CountField = DefaultCountField
	}
	if cfg.SpanField == "" {
		cfg.SpanField = DefaultSpanField
	}
	if cfg.TimestampField == "" {
		cfg.TimestampField = DefaultTimestampField
	}
	return &Deduplicator{cfg: cfg}
}

type group struct {
	doc      *doc.Doc
	count    int
	firstTS  time.Time
	latestTS time.Time
}

// DeduplicateBatch keeps the first document of every fingerprint group, in
// first-occurrence order. Groups larger than one get CountField set to the
// group size and SpanField to the time between first and last member.
func (d *Deduplicator) DeduplicateBatch(docs []*doc.Doc) []*doc.Doc {
	if len(docs) == 0 {
		return nil
	}

	var order []*group
	groups := make(map[uint64]*group)

	for _, dc := range docs {
		key := d.Fingerprint(dc)
		ts := d.timestamp(dc)

		g, exists := groups[key]
		if exists && (d.cfg.Window == 0 || ts.Sub(g.firstTS) <= d.cfg.Window) {
			g.count++
			if ts.After(g.latestTS) {
				g.latestTS = ts
			}
			continue
		}

		g = &group{doc: dc, count: 1, firstTS: ts, latestTS: ts}
		groups[key] = g
		order = append(order, g)
	}

	result := make([]*doc.Doc, 0, len(order))
	for _, g := range order {
		if g.count > 1 {
			g.doc.AddField(doc.Escape(d.cfg.CountField), int64(g.count))
			if !g.firstTS.IsZero() {
				g.doc.AddField(doc.Escape(d.cfg.SpanField), formatDuration(g.latestTS.Sub(g.firstTS)))
			}
		}
		result = append(result, g.doc)
	}
	return result
}

// Fingerprint hashes the configured fields of dc, or its flattened
// projection when no fields are configured.
func (d *Deduplicator) Fingerprint(dc *doc.Doc) uint64 {
	h := xxhash.New()
	if len(d.cfg.Fields) > 0 {
		for _, f := range d.cfg.Fields {
			h.WriteString(f)
			h.Write([]byte{0})
			if v, err := dc.Field(f); err == nil {
				h.Write([]byte{1})
				h.WriteString(convert.ToString(v))
			}
			h.Write([]byte{0})
		}
		return h.Sum64()
	}

	skip := []string{doc.Escape(d.cfg.TimestampField), doc.Escape(d.cfg.CountField), doc.Escape(d.cfg.SpanField)}
	flat := dc.Flatten()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		if slices.Contains(skip, k) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		h.WriteString(k)
		h.Write([]byte{0})
		h.WriteString(convert.ToString(flat[k]))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func (d *Deduplicator) timestamp(dc *doc.Doc) time.Time {
	v, err := dc.Field(doc.Escape(d.cfg.TimestampField))
	if err != nil {
		return time.Time{}
	}
	switch ts := v.(type) {
	case time.Time:
		return ts
	case string:
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	return time.Time{}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, secs)
}
