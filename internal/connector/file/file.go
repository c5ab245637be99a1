// Package file implements a connector that reads NDJSON log files, plain or
// compressed.
//
// Recognized Extra keys: "path" (required), "compression" (codec name,
// default detected from the extension), "start_at" ("beginning" or "end",
// stream mode only) and "poll_interval".
package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/crimson-sun/timber/internal/compress"
	"github.com/crimson-sun/timber/internal/connector"
	"github.com/crimson-sun/timber/internal/jsonutil"
	"github.com/crimson-sun/timber/internal/model"
)

const (
	name                = "file"
	defaultPollInterval = time.Second
	maxLineSize         = 1 << 20 // 1MB
)

func init() {
	connector.Register(name, func() connector.Connector {
		return &Connector{}
	})
}

// Connector reads newline-delimited log records from a file.
type Connector struct{}

func options(cfg connector.ConnectorConfig) (string, compress.Codec, error) {
	path := cfg.Extra["path"]
	if path == "" {
		return "", "", fmt.Errorf("file connector: missing required config key \"path\" in Extra")
	}
	codec := compress.FromPath(path)
	if codecName := cfg.Extra["compression"]; codecName != "" {
		c, err := compress.ParseCodec(codecName)
		if err != nil {
			return "", "", fmt.Errorf("file connector: %w", err)
		}
		codec = c
	}
	return path, codec, nil
}

// toRawLog decodes JSON object lines into fields; anything else is kept as
// raw text.
func toRawLog(line []byte, now time.Time) model.RawLog {
	raw := model.RawLog{Timestamp: now, Source: name}
	if fields, err := jsonutil.ParseObject(line); err == nil && len(fields) > 0 {
		raw.Fields = fields
		if ts := connector.Timestamp(fields); !ts.IsZero() {
			raw.Timestamp = ts
		}
		return raw
	}
	raw.Raw = string(line)
	return raw
}

func (c *Connector) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.RawLog, error) {
	path, codec, err := options(cfg)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file connector: %w", err)
	}
	defer f.Close()

	r, err := compress.NewReader(codec, f)
	if err != nil {
		return nil, fmt.Errorf("file connector: %w", err)
	}
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	var results []model.RawLog
	now := time.Now()
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		raw := toRawLog(line, now)
		if !params.Match(raw.Timestamp) {
			continue
		}
		results = append(results, raw)
		if params.Limit > 0 && len(results) >= params.Limit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("file connector: read %s: %w", path, err)
	}
	return results, nil
}

// Stream emits every line of the file and then follows it for appended
// lines. Compressed files cannot be followed; the channel closes at EOF.
func (c *Connector) Stream(ctx context.Context, cfg connector.ConnectorConfig) (<-chan model.RawLog, error) {
	path, codec, err := options(cfg)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file connector: %w", err)
	}
	if codec == compress.None && cfg.Extra["start_at"] == "end" {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return nil, fmt.Errorf("file connector: seek: %w", err)
		}
	}
	r, err := compress.NewReader(codec, f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("file connector: %w", err)
	}

	follow := codec == compress.None
	interval := cfg.PollInterval(defaultPollInterval)

	ch := make(chan model.RawLog, 64)
	go func() {
		defer close(ch)
		defer f.Close()
		defer r.Close()
		tail(ctx, bufio.NewReaderSize(r, 64*1024), follow, interval, ch)
	}()
	return ch, nil
}

func tail(ctx context.Context, br *bufio.Reader, follow bool, interval time.Duration, ch chan<- model.RawLog) {
	var partial []byte
	for {
		chunk, err := br.ReadBytes('\n')
		partial = append(partial, chunk...)

		if err == nil {
			line := bytes.TrimSpace(partial)
			partial = partial[:0]
			if len(line) == 0 || len(line) > maxLineSize {
				continue
			}
			select {
			case ch <- toRawLog(line, time.Now()):
			case <-ctx.Done():
				return
			}
			continue
		}

		if !errors.Is(err, io.EOF) {
			slog.Warn("read error", "connector", name, "error", err)
			return
		}
		if !follow {
			if line := bytes.TrimSpace(partial); len(line) > 0 {
				select {
				case ch <- toRawLog(line, time.Now()):
				case <-ctx.Done():
				}
			}
			return
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}
