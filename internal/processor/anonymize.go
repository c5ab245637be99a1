package processor

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/crimson-sun/timber/internal/convert"
	"github.com/crimson-sun/timber/internal/doc"
)

func init() {
	Register("anonymize", newAnonymize)
}

// anonymize replaces field values with a keyed BLAKE2b-256 digest of their
// string form, so equal inputs stay correlatable without being readable.
type anonymize struct {
	paths []string
	key   []byte
}

func newAnonymize(cfg Config) (Processor, error) {
	paths, err := cfg.fieldsOf()
	if err != nil {
		return nil, err
	}
	key := []byte(cfg.StringOr("key", ""))
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("anonymize: key longer than %d bytes", blake2b.Size)
	}
	return &anonymize{paths: paths, key: key}, nil
}

func (p *anonymize) Process(d *doc.Doc) error {
	for _, path := range p.paths {
		v, err := d.Field(path)
		if err != nil {
			continue
		}
		h, err := blake2b.New256(p.key)
		if err != nil {
			return fmt.Errorf("anonymize: %w", err)
		}
		h.Write([]byte(convert.ToString(v)))
		d.AddField(path, hex.EncodeToString(h.Sum(nil)))
	}
	return nil
}
