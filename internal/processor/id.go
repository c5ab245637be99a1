package processor

import (
	"github.com/google/uuid"

	"github.com/crimson-sun/timber/internal/doc"
)

func init() {
	Register("id", newID)
}

type addID struct {
	path      string
	overwrite bool
}

func newID(cfg Config) (Processor, error) {
	return &addID{
		path:      cfg.StringOr("field", "id"),
		overwrite: cfg.Bool("overwrite"),
	}, nil
}

func (p *addID) Process(d *doc.Doc) error {
	if !p.overwrite && d.HasField(p.path) {
		return nil
	}
	d.AddField(p.path, uuid.NewString())
	return nil
}
