package output

import (
	"context"

	"github.com/crimson-sun/timber/internal/doc"
)

// Output defines the interface for processed document destinations.
type Output interface {
	Write(ctx context.Context, d *doc.Doc) error
	Close() error
}
