package timber

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/jsonutil"
	"github.com/crimson-sun/timber/internal/output"
	"github.com/crimson-sun/timber/internal/processor"
)

// Doc is a mutable, path-addressable JSON document.
type Doc = doc.Doc

var (
	ErrInvalidDocument = doc.ErrInvalidDocument
	ErrFieldNotFound   = doc.ErrFieldNotFound
	// ErrDropped is returned when the processor chain discards a record.
	ErrDropped = processor.ErrDrop
)

// NewDoc wraps source. The map is used directly, not copied.
func NewDoc(source map[string]any) (*Doc, error) {
	return doc.New(source)
}

// Tokenize splits a dotted path into its segments.
func Tokenize(path string) []string {
	return doc.Tokenize(path)
}

// Escape makes key usable as a single path segment.
func Escape(key string) string {
	return doc.Escape(key)
}

// Processor runs a processor chain over JSON records.
type Processor struct {
	chain *processor.Chain
	mode  output.Mode
}

// New builds a Processor. Without WithDefinition or WithDefinitionFile the
// chain is empty and records pass through unchanged.
func New(opts ...Option) (*Processor, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	def, err := o.definition()
	if err != nil {
		return nil, fmt.Errorf("timber: %w", err)
	}
	chain, err := processor.Build(def.Processors)
	if err != nil {
		return nil, fmt.Errorf("timber: %w", err)
	}

	mode := output.Nested
	if o.flatten {
		mode = output.Flat
	}
	return &Processor{chain: chain, mode: mode}, nil
}

// Process runs the chain over d in place.
func (p *Processor) Process(d *Doc) error {
	return p.chain.Process(d)
}

// ProcessJSON parses line as a JSON object, runs the chain and returns the
// nested or flattened result. Dropped records return ErrDropped.
func (p *Processor) ProcessJSON(line []byte) (map[string]any, error) {
	source, err := jsonutil.ParseObject(line)
	if err != nil {
		return nil, fmt.Errorf("timber: %w", err)
	}
	d, err := doc.New(source)
	if err != nil {
		return nil, fmt.Errorf("timber: %w", err)
	}
	if err := p.chain.Process(d); err != nil {
		if errors.Is(err, processor.ErrDrop) {
			return nil, ErrDropped
		}
		return nil, fmt.Errorf("timber: %w", err)
	}
	return output.Format(d, p.mode), nil
}

// ProcessBatch processes each line, omitting dropped records. The first
// other failure aborts the batch.
func (p *Processor) ProcessBatch(lines [][]byte) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(lines))
	for i, line := range lines {
		m, err := p.ProcessJSON(line)
		if errors.Is(err, ErrDropped) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Len returns the number of processors in the chain.
func (p *Processor) Len() int {
	return p.chain.Len()
}
