package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/output"
)

// Output writes JSON-encoded documents to stdout, one per line.
type Output struct {
	mu     sync.Mutex
	w      io.Writer
	mode   output.Mode
	pretty bool
}

// New creates a stdout Output. Pretty output is indented and no longer NDJSON.
func New(mode output.Mode, pretty bool) *Output {
	return NewWriter(os.Stdout, mode, pretty)
}

// NewWriter creates an Output that writes to w instead of stdout.
func NewWriter(w io.Writer, mode output.Mode, pretty bool) *Output {
	return &Output{w: w, mode: mode, pretty: pretty}
}

func (o *Output) Write(_ context.Context, d *doc.Doc) error {
	var data []byte
	if o.pretty {
		var err error
		if data, err = output.EncodeIndent(d, o.mode); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
	} else {
		data = output.Encode(d, o.mode)
	}
	data = append(data, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.w.Write(data); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
