package processor

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/jsonutil"
)

func init() {
	Register("json", newJSON)
}

// parseJSON decodes a string field holding JSON into a structured value.
type parseJSON struct {
	field  string
	target string
	remove bool
	// ignoreMissing skips documents without the field instead of failing them.
	ignoreMissing bool
}

func newJSON(cfg Config) (Processor, error) {
	field, err := cfg.String("field")
	if err != nil {
		return nil, err
	}
	return &parseJSON{
		field:  field,
		target: cfg.StringOr("target", field),
		remove: cfg.Bool("remove_field"),

		ignoreMissing: cfg.Bool("ignore_missing"),
	}, nil
}

func (p *parseJSON) Process(d *doc.Doc) error {
	s, err := doc.FieldAs[string](d, p.field)
	if err != nil {
		if p.ignoreMissing && errors.Is(err, doc.ErrFieldNotFound) {
			return nil
		}
		return fmt.Errorf("json: %w", err)
	}
	v, err := jsonutil.Parse([]byte(s))
	if err != nil {
		return fmt.Errorf("json: field [%s]: %w", p.field, err)
	}
	if p.remove && p.target != p.field {
		d.RemoveField(p.field)
	}
	d.AddField(p.target, v)
	return nil
}
