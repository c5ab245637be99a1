package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/crimson-sun/timber/internal/connector"
	"github.com/crimson-sun/timber/internal/dedup"
	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/jsonutil"
	"github.com/crimson-sun/timber/internal/model"
	"github.com/crimson-sun/timber/internal/output"
	"github.com/crimson-sun/timber/internal/processor"
)

// Processor transforms a document in place. *processor.Chain satisfies it.
type Processor interface {
	Process(d *doc.Doc) error
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Processed int64 // documents handed to the output (before dedup)
	Dropped   int64 // documents discarded by a processor
	Failed    int64 // logs that could not be converted or processed
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDedup enables batch deduplication in stream mode, flushing every
// window. Query mode deduplicates the whole result set.
func WithDedup(d *dedup.Deduplicator, window time.Duration) Option {
	return func(p *Pipeline) {
		p.dedup = d
		p.window = window
	}
}

// WithMaxBufferSize caps the dedup buffer; a full buffer flushes early.
// 0 (default) means unlimited.
func WithMaxBufferSize(n int) Option {
	return func(p *Pipeline) { p.maxBuffer = n }
}

// Pipeline connects a connector, a processor chain and an output.
type Pipeline struct {
	connector connector.Connector
	processor Processor
	output    output.Output

	dedup     *dedup.Deduplicator
	window    time.Duration
	maxBuffer int

	processed   atomic.Int64
	dropped     atomic.Int64
	skippedLogs atomic.Int64
}

// New creates a Pipeline from the given components.
func New(conn connector.Connector, proc Processor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		connector: conn,
		processor: proc,
		output:    out,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream starts the pipeline in streaming mode, processing logs as they arrive.
// Blocks until the context is cancelled or the connector closes its channel.
func (p *Pipeline) Stream(ctx context.Context, cfg connector.ConnectorConfig) error {
	ch, err := p.connector.Stream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline stream: %w", err)
	}
	if p.dedup != nil {
		return p.streamWithDedup(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			d, ok := p.process(ctx, raw)
			if !ok {
				continue
			}
			if err := p.output.Write(ctx, d); err != nil {
				return fmt.Errorf("pipeline output: %w", err)
			}
		}
	}
}

func (p *Pipeline) streamWithDedup(ctx context.Context, ch <-chan model.RawLog) error {
	buf := newStreamBuffer(p.dedup, p.output, p.window, p.maxBuffer)
	flush := func(ctx context.Context) error {
		n, err := buf.flush(ctx)
		if n > 0 {
			slog.Debug("dedup window flushed", "written", n)
		}
		if err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			// The caller's context is already done.
			if err := flush(context.Background()); err != nil {
				return err
			}
			return ctx.Err()
		case <-buf.flushCh():
			if err := flush(ctx); err != nil {
				return err
			}
		case raw, ok := <-ch:
			if !ok {
				return flush(ctx)
			}
			d, ok := p.process(ctx, raw)
			if !ok {
				continue
			}
			if buf.add(d) {
				if err := flush(ctx); err != nil {
					return err
				}
			}
		}
	}
}

// Query runs the pipeline in one-shot query mode.
func (p *Pipeline) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) error {
	raws, err := p.connector.Query(ctx, cfg, params)
	if err != nil {
		return fmt.Errorf("pipeline query: %w", err)
	}

	docs := make([]*doc.Doc, 0, len(raws))
	for _, raw := range raws {
		if d, ok := p.process(ctx, raw); ok {
			docs = append(docs, d)
		}
	}
	if p.dedup != nil {
		docs = p.dedup.DeduplicateBatch(docs)
	}

	for _, d := range docs {
		if err := p.output.Write(ctx, d); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
	}
	return nil
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.skippedLogs.Load(),
	}
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	s := p.Stats()
	if s.Failed > 0 || s.Dropped > 0 {
		slog.Info("pipeline closed", "processed", s.Processed, "dropped", s.Dropped, "failed", s.Failed)
	}
	return p.output.Close()
}

// process converts raw into a document and runs the processor over it.
// It reports false when the document was dropped or failed.
func (p *Pipeline) process(ctx context.Context, raw model.RawLog) (*doc.Doc, bool) {
	d, err := toDoc(raw)
	if err != nil {
		p.skippedLogs.Add(1)
		slog.Warn("skipping log", "source", raw.Source, "error", err)
		return nil, false
	}
	if p.processor != nil {
		if err := p.processor.Process(d); err != nil {
			if errors.Is(err, processor.ErrDrop) {
				p.dropped.Add(1)
				return nil, false
			}
			p.skippedLogs.Add(1)
			slog.Warn("skipping log", "source", raw.Source, "error", err)
			if slog.Default().Enabled(ctx, slog.LevelDebug) {
				slog.Debug("failed document", "dump", spew.Sdump(d.Source()))
			}
			return nil, false
		}
	}
	p.processed.Add(1)
	return d, true
}

// toDoc builds the document root for a raw log. A raw line holding a JSON
// object becomes the root; any other non-empty line is kept under "message".
// Connector fields, "@timestamp" and "source" fill keys that are still absent.
func toDoc(raw model.RawLog) (*doc.Doc, error) {
	root := make(map[string]any, len(raw.Fields)+3)

	if line := strings.TrimSpace(raw.Raw); line != "" {
		if strings.HasPrefix(line, "{") {
			if obj, err := jsonutil.ParseObject([]byte(line)); err == nil {
				root = obj
			} else {
				root["message"] = raw.Raw
			}
		} else {
			root["message"] = raw.Raw
		}
	}

	for k, v := range raw.Fields {
		if root[k] == nil {
			root[k] = v
		}
	}
	if root["@timestamp"] == nil && !raw.Timestamp.IsZero() {
		root["@timestamp"] = raw.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if root["source"] == nil && raw.Source != "" {
		root["source"] = raw.Source
	}

	d, err := doc.New(root)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return d, nil
}
