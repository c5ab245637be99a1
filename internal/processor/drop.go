package processor

import "github.com/crimson-sun/timber/internal/doc"

func init() {
	Register("drop", newDrop)
}

// drop discards documents. With "field" set it only drops documents that
// have that field, and with "value" also set only when the field equals it.
type drop struct {
	field    string
	value    any
	hasValue bool
}

func newDrop(cfg Config) (Processor, error) {
	value, err := cfg.Value("value")
	return &drop{
		field:    cfg.StringOr("field", ""),
		value:    value,
		hasValue: err == nil,
	}, nil
}

func (p *drop) Process(d *doc.Doc) error {
	if p.field == "" {
		return ErrDrop
	}
	v, err := d.Field(p.field)
	if err != nil {
		return nil
	}
	if p.hasValue && !doc.Equal(v, p.value) {
		return nil
	}
	return ErrDrop
}
