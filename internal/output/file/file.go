package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/timber/internal/compress"
	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/output"
)

const defaultBufSize = 64 * 1024 // 64KB

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the uncompressed byte count at which rotation triggers.
// 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// WithCompression compresses the file with the given codec. Each open or
// rotation starts a new compressed stream. Default: compress.None.
func WithCompression(c compress.Codec) Option {
	return func(o *Output) { o.codec = c }
}

// Output writes NDJSON to a file with buffered I/O, optional compression
// and optional size-based rotation.
type Output struct {
	w       *bufio.Writer
	zw      io.WriteCloser
	f       *os.File
	mu      sync.Mutex
	path    string
	mode    output.Mode
	codec   compress.Codec
	maxSize int64 // 0 = no rotation
	written int64
	bufSize int
}

// New creates a file output that writes NDJSON to the given path.
func New(path string, mode output.Mode, opts ...Option) (*Output, error) {
	o := &Output{
		path:    path,
		mode:    mode,
		codec:   compress.None,
		bufSize: defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.openFile(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write encodes the document and appends it as a line to the file.
func (o *Output) Write(_ context.Context, d *doc.Doc) error {
	data := append(output.Encode(d, o.mode), '\n')

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.maxSize > 0 && o.written > 0 && o.written+int64(len(data)) > o.maxSize {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("file output: rotate: %w", err)
		}
	}

	n, err := o.w.Write(data)
	o.written += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	return nil
}

// Close flushes the buffer, ends the compressed stream and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.closeFile(); err != nil {
		return fmt.Errorf("file output: %w", err)
	}
	return nil
}

// openFile opens (or creates) the output file and wraps it in the codec
// writer and a bufio.Writer.
func (o *Output) openFile() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	written := int64(0)
	if o.codec == compress.None {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return fmt.Errorf("file output: stat %s: %w", o.path, err)
		}
		written = info.Size()
	}
	zw, err := compress.NewWriter(o.codec, f)
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: %w", err)
	}
	o.f = f
	o.zw = zw
	o.w = bufio.NewWriterSize(zw, o.bufSize)
	o.written = written
	return nil
}

func (o *Output) closeFile() error {
	if err := o.w.Flush(); err != nil {
		o.zw.Close()
		o.f.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := o.zw.Close(); err != nil {
		o.f.Close()
		return fmt.Errorf("finish %s stream: %w", o.codec, err)
	}
	return o.f.Close()
}

// rotate closes the current file, renames it to {path}.1
// (shifting existing rotated files), and opens a new file.
func (o *Output) rotate() error {
	if err := o.closeFile(); err != nil {
		return err
	}

	for i := 9; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", o.path, i)
		to := fmt.Sprintf("%s.%d", o.path, i+1)
		os.Rename(from, to) // may not exist
	}
	if err := os.Rename(o.path, o.path+".1"); err != nil {
		return err
	}

	o.written = 0
	return o.openFile()
}
