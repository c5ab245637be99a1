// Package multi tees documents to several outputs.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/output"
)

// Multi writes every document to each of its outputs in turn. A failing
// output does not starve the ones after it.
type Multi struct {
	outputs []output.Output
}

// New returns a Multi over outputs. Nil entries are skipped.
func New(outputs ...output.Output) *Multi {
	m := &Multi{outputs: make([]output.Output, 0, len(outputs))}
	for _, o := range outputs {
		if o != nil {
			m.outputs = append(m.outputs, o)
		}
	}
	return m
}

// Len returns the number of outputs.
func (m *Multi) Len() int { return len(m.outputs) }

// Write hands d to each output. Outputs must not mutate d. Errors are
// tagged with the output's position.
func (m *Multi) Write(ctx context.Context, d *doc.Doc) error {
	return m.each(func(o output.Output) error { return o.Write(ctx, d) })
}

// Close closes every output, even after one fails.
func (m *Multi) Close() error {
	return m.each(output.Output.Close)
}

func (m *Multi) each(fn func(output.Output) error) error {
	var errs []error
	for i, o := range m.outputs {
		if err := fn(o); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
