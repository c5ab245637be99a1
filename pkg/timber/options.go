package timber

import "github.com/crimson-sun/timber/internal/processor"

type options struct {
	definitionYAML []byte
	definitionPath string
	flatten        bool
}

// Option configures a Processor.
type Option func(*options)

// WithDefinition sets the YAML processor definition.
func WithDefinition(yaml []byte) Option {
	return func(o *options) { o.definitionYAML = yaml }
}

// WithDefinitionFile reads the YAML processor definition from path.
// WithDefinition takes precedence when both are set.
func WithDefinitionFile(path string) Option {
	return func(o *options) { o.definitionPath = path }
}

// WithFlatten makes ProcessJSON return the flattened projection.
func WithFlatten() Option {
	return func(o *options) { o.flatten = true }
}

func (o options) definition() (processor.Definition, error) {
	switch {
	case o.definitionYAML != nil:
		return processor.ParseDefinition(o.definitionYAML)
	case o.definitionPath != "":
		return processor.LoadDefinition(o.definitionPath)
	}
	return processor.Definition{}, nil
}
