// Package httppoll implements a connector that polls an HTTP endpoint
// returning JSON log records.
//
// Recognized Extra keys:
//
//	path          request path appended to Endpoint (default "/")
//	items_path    dotted path to the record list in the response; "" means the
//	              response itself, and {"data": [...]} is detected automatically
//	cursor_path   dotted path to the next-page cursor in the response
//	cursor_param  query parameter that carries the cursor (default "cursor")
//	id_field      record field used to skip records already emitted (default "id")
//	poll_interval Go duration between polls in stream mode (default 5s)
package httppoll

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/crimson-sun/timber/internal/connector"
	"github.com/crimson-sun/timber/internal/connector/httpclient"
	"github.com/crimson-sun/timber/internal/convert"
	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/model"
)

const (
	name                = "httppoll"
	defaultPollInterval = 5 * time.Second
	maxSeen             = 10000
)

func init() {
	connector.Register(name, func() connector.Connector {
		return &Connector{}
	})
}

// Connector polls an HTTP JSON endpoint.
type Connector struct{}

type settings struct {
	client      *httpclient.Client
	path        string
	itemsPath   string
	cursorPath  string
	cursorParam string
	idField     string
}

func newSettings(cfg connector.ConnectorConfig) (settings, error) {
	if cfg.Endpoint == "" {
		return settings{}, fmt.Errorf("httppoll connector: missing endpoint")
	}
	return settings{
		client:      httpclient.New(cfg.Endpoint, cfg.APIKey),
		path:        getOr(cfg.Extra, "path", "/"),
		itemsPath:   cfg.Extra["items_path"],
		cursorPath:  cfg.Extra["cursor_path"],
		cursorParam: getOr(cfg.Extra, "cursor_param", "cursor"),
		idField:     getOr(cfg.Extra, "id_field", "id"),
	}, nil
}

func getOr(m map[string]string, key, fallback string) string {
	if v := m[key]; v != "" {
		return v
	}
	return fallback
}

// fetch requests one page and returns its records and the next cursor.
func (s settings) fetch(ctx context.Context, cursor string) ([]map[string]any, string, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set(s.cursorParam, cursor)
	}
	resp, err := s.client.GetJSON(ctx, s.path, q)
	if err != nil {
		return nil, "", err
	}

	items, err := s.items(resp)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if obj, ok := resp.(map[string]any); ok && s.cursorPath != "" {
		if v, ok := doc.Resolve(obj, s.cursorPath); ok {
			next = convert.ToString(v)
		}
	}
	return items, next, nil
}

func (s settings) items(resp any) ([]map[string]any, error) {
	list := resp
	if obj, ok := resp.(map[string]any); ok {
		path := s.itemsPath
		if path == "" {
			path = "data"
		}
		v, found := doc.Resolve(obj, path)
		if !found {
			return nil, fmt.Errorf("httppoll connector: no records at %q", path)
		}
		list = v
	}
	raw, ok := list.([]any)
	if !ok {
		return nil, fmt.Errorf("httppoll connector: records are %s, not a list", doc.KindOf(list))
	}

	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok && len(m) > 0 {
			out = append(out, m)
		}
	}
	return out, nil
}

func toRawLog(item map[string]any) model.RawLog {
	return model.RawLog{
		Timestamp: connector.Timestamp(item),
		Source:    name,
		Fields:    item,
	}
}

func (c *Connector) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.RawLog, error) {
	s, err := newSettings(cfg)
	if err != nil {
		return nil, err
	}

	var results []model.RawLog
	cursor := ""
	for {
		items, next, err := s.fetch(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("httppoll connector: %w", err)
		}
		for _, item := range items {
			raw := toRawLog(item)
			if !params.Match(raw.Timestamp) {
				continue
			}
			results = append(results, raw)
			if params.Limit > 0 && len(results) >= params.Limit {
				return results, nil
			}
		}
		if next == "" || next == cursor || len(items) == 0 {
			return results, nil
		}
		cursor = next
	}
}

func (c *Connector) Stream(ctx context.Context, cfg connector.ConnectorConfig) (<-chan model.RawLog, error) {
	s, err := newSettings(cfg)
	if err != nil {
		return nil, err
	}
	interval := cfg.PollInterval(defaultPollInterval)

	ch := make(chan model.RawLog, 64)
	go func() {
		defer close(ch)
		p := &poller{settings: s, seen: make(map[string]struct{})}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		p.poll(ctx, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.poll(ctx, ch)
			}
		}
	}()
	return ch, nil
}

// poller carries cursor and de-duplication state across stream polls.
type poller struct {
	settings
	cursor string
	seen   map[string]struct{}
}

func (p *poller) poll(ctx context.Context, ch chan<- model.RawLog) {
	items, next, err := p.fetch(ctx, p.cursor)
	if err != nil {
		slog.Warn("poll error", "connector", name, "error", err)
		return
	}
	if len(p.seen) > maxSeen {
		clear(p.seen)
	}

	for _, item := range items {
		if id, ok := item[p.idField]; ok {
			key := convert.ToString(id)
			if _, dup := p.seen[key]; dup {
				continue
			}
			p.seen[key] = struct{}{}
		}
		select {
		case ch <- toRawLog(item):
		case <-ctx.Done():
			return
		}
	}
	if next != "" {
		p.cursor = next
	}
}
