package processor

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/timber/internal/doc"
)

// Step is a configured processor together with the type name it was built
// from.
type Step struct {
	Type      string
	Processor Processor
}

// Chain runs processors in order.
type Chain struct {
	steps []Step
}

// NewChain creates a Chain from already-built steps.
func NewChain(steps ...Step) *Chain {
	return &Chain{steps: steps}
}

// Build instantiates every spec through the registry.
func Build(specs []Spec) (*Chain, error) {
	steps := make([]Step, 0, len(specs))
	for i, spec := range specs {
		factory, err := Get(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("processor %d: %w", i, err)
		}
		p, err := factory(spec.Config)
		if err != nil {
			return nil, fmt.Errorf("processor %d (%s): %w", i, spec.Type, err)
		}
		steps = append(steps, Step{Type: spec.Type, Processor: p})
	}
	return NewChain(steps...), nil
}

// Len returns the number of steps.
func (c *Chain) Len() int { return len(c.steps) }

// Process applies every step to d, stopping at the first error. A step that
// drops the document yields an error matching ErrDrop.
func (c *Chain) Process(d *doc.Doc) error {
	for i, s := range c.steps {
		if err := s.Processor.Process(d); err != nil {
			if errors.Is(err, ErrDrop) {
				return err
			}
			return fmt.Errorf("processor %d (%s): %w", i, s.Type, err)
		}
	}
	return nil
}
