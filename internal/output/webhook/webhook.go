package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/crimson-sun/timber/internal/compress"
	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/output"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
	defaultBackoff       = time.Second
	maxRetries           = 3
)

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithBatchSize sets the number of documents accumulated before a flush. Default: 50.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithFlushInterval sets the maximum time between flushes. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithBackoff sets the base delay between retries. Default: 1s, doubled per attempt.
func WithBackoff(d time.Duration) Option {
	return func(o *Output) { o.backoff = d }
}

// WithMode selects nested or flattened records. Default: output.Nested.
func WithMode(m output.Mode) Option {
	return func(o *Output) { o.mode = m }
}

// WithGzip compresses request bodies and sets Content-Encoding: gzip.
func WithGzip() Option {
	return func(o *Output) { o.gzip = true }
}

// WithOnError sets a callback invoked when a timer-triggered flush fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// Output POSTs batched documents to an HTTP endpoint as a JSON array.
// Documents are encoded on Write, accumulate in an internal buffer and are
// flushed when batchSize is reached or flushInterval elapses. Retries on 5xx
// with exponential backoff.
type Output struct {
	client        *http.Client
	url           string
	headers       map[string]string
	batchSize     int
	flushInterval time.Duration
	backoff       time.Duration
	mode          output.Mode
	gzip          bool
	errFunc       func(error)
	mu            sync.Mutex
	pending       [][]byte
	timer         *time.Timer
}

// New creates a webhook output targeting the given URL.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client:        &http.Client{Timeout: defaultTimeout},
		url:           url,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		backoff:       defaultBackoff,
		errFunc:       func(err error) { slog.Warn("webhook flush error", "error", err) },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Write encodes d and appends it to the batch. When batchSize is reached the
// batch is flushed immediately. A timer is started on the first document so
// the batch flushes even if batchSize is never reached.
func (o *Output) Write(_ context.Context, d *doc.Doc) error {
	record := output.Encode(d, o.mode)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, record)

	if len(o.pending) >= o.batchSize {
		return o.flushLocked()
	}

	if len(o.pending) == 1 {
		o.timer = time.AfterFunc(o.flushInterval, func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if err := o.flushLocked(); err != nil {
				o.errFunc(err)
			}
		})
	}
	return nil
}

// Close flushes any remaining documents and stops the timer.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if len(o.pending) > 0 {
		return o.flushLocked()
	}
	return nil
}

// flushLocked sends the pending batch via HTTP POST. Caller must hold o.mu.
func (o *Output) flushLocked() error {
	if len(o.pending) == 0 {
		return nil
	}
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}

	batch := o.pending
	o.pending = nil

	body, err := o.encodeBatch(batch)
	if err != nil {
		return err
	}
	return o.postWithRetry(body)
}

func (o *Output) encodeBatch(batch [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.Write(bytes.Join(batch, []byte{','}))
	buf.WriteByte(']')
	if !o.gzip {
		return buf.Bytes(), nil
	}

	var zbuf bytes.Buffer
	zw, err := compress.NewWriter(compress.Gzip, &zbuf)
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	if _, err := zw.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("webhook: gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("webhook: gzip: %w", err)
	}
	return zbuf.Bytes(), nil
}

// postWithRetry sends the body via HTTP POST with retry on 5xx.
func (o *Output) postWithRetry(body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(o.backoff * time.Duration(1<<(attempt-1)))
		}

		req, err := http.NewRequest(http.MethodPost, o.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if o.gzip {
			req.Header.Set("Content-Encoding", "gzip")
		}
		for k, v := range o.headers {
			req.Header.Set(k, v)
		}

		resp, err := o.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = fmt.Errorf("webhook: HTTP %d", resp.StatusCode)

		if resp.StatusCode < 500 {
			return lastErr
		}
	}
	return lastErr
}
