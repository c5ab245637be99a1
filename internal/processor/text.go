package processor

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/timber/internal/doc"
)

func init() {
	Register("lowercase", func(cfg Config) (Processor, error) {
		return newStringTransform(cfg, func() func(string) string { return cases.Lower(language.Und).String })
	})
	Register("uppercase", func(cfg Config) (Processor, error) {
		return newStringTransform(cfg, func() func(string) string { return cases.Upper(language.Und).String })
	})
	Register("normalize", newNormalize)
}

// stringTransform rewrites string fields. Missing and non-string fields are
// left alone. Casers carry state, so a fresh one is built per document.
type stringTransform struct {
	paths []string
	fn    func() func(string) string
}

func newStringTransform(cfg Config, fn func() func(string) string) (Processor, error) {
	paths, err := cfg.fieldsOf()
	if err != nil {
		return nil, err
	}
	return &stringTransform{paths: paths, fn: fn}, nil
}

func (p *stringTransform) Process(d *doc.Doc) error {
	transform := p.fn()
	for _, path := range p.paths {
		s, err := doc.FieldAs[string](d, path)
		if err != nil {
			continue
		}
		d.AddField(path, transform(s))
	}
	return nil
}

func newNormalize(cfg Config) (Processor, error) {
	var form norm.Form
	switch f := strings.ToUpper(cfg.StringOr("form", "NFC")); f {
	case "NFC":
		form = norm.NFC
	case "NFD":
		form = norm.NFD
	case "NFKC":
		form = norm.NFKC
	case "NFKD":
		form = norm.NFKD
	default:
		return nil, fmt.Errorf("normalize: unknown form %q", f)
	}
	return newStringTransform(cfg, func() func(string) string { return form.String })
}
