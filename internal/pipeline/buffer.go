package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/crimson-sun/timber/internal/dedup"
	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/output"
)

// streamBuffer holds processed documents for one dedup window. It is owned
// by the stream loop and is not safe for concurrent use.
type streamBuffer struct {
	dedup   *dedup.Deduplicator
	out     output.Output
	window  time.Duration
	maxSize int

	pending []*doc.Doc
	timer   *time.Timer
}

func newStreamBuffer(d *dedup.Deduplicator, out output.Output, window time.Duration, maxSize int) *streamBuffer {
	return &streamBuffer{dedup: d, out: out, window: window, maxSize: maxSize}
}

// add queues d. The window opens with the first queued document. It reports
// whether the buffer reached maxSize (0 disables the cap).
func (b *streamBuffer) add(d *doc.Doc) bool {
	if len(b.pending) == 0 {
		b.timer = time.NewTimer(b.window)
	}
	b.pending = append(b.pending, d)
	return b.maxSize > 0 && len(b.pending) >= b.maxSize
}

// flushCh fires when the open window expires. It is nil while the buffer is
// empty, which blocks forever in a select.
func (b *streamBuffer) flushCh() <-chan time.Time {
	if b.timer == nil {
		return nil
	}
	return b.timer.C
}

// flush collapses the window and writes the survivors. A failed write does
// not stop the rest of the batch; the errors are joined. It returns the
// number of documents the output accepted.
func (b *streamBuffer) flush(ctx context.Context) (int, error) {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.pending) == 0 {
		return 0, nil
	}
	batch := b.dedup.DeduplicateBatch(b.pending)
	b.pending = nil

	var (
		written int
		errs    []error
	)
	for _, d := range batch {
		if err := b.out.Write(ctx, d); err != nil {
			errs = append(errs, err)
			continue
		}
		written++
	}
	return written, errors.Join(errs...)
}
