package connector

import (
	"context"
	"time"

	"github.com/crimson-sun/timber/internal/model"
)

// Connector defines the interface all log source connectors must implement.
type Connector interface {
	// Stream opens a long-lived source and sends raw logs as they arrive.
	Stream(ctx context.Context, cfg ConnectorConfig) (<-chan model.RawLog, error)

	// Query fetches a batch of historical logs matching the given parameters.
	Query(ctx context.Context, cfg ConnectorConfig, params QueryParams) ([]model.RawLog, error)
}

// ConnectorConfig holds provider-specific connection settings.
type ConnectorConfig struct {
	Provider string
	APIKey   string
	Endpoint string
	Extra    map[string]string
}

// QueryParams defines filters for historical log queries.
type QueryParams struct {
	Start time.Time
	End   time.Time
	Limit int
}

// Match reports whether ts falls in the [Start, End) window. Zero bounds and
// zero timestamps always match.
func (p QueryParams) Match(ts time.Time) bool {
	if ts.IsZero() {
		return true
	}
	if !p.Start.IsZero() && ts.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && !ts.Before(p.End) {
		return false
	}
	return true
}

// PollInterval reads Extra["poll_interval"], falling back when it is absent
// or invalid.
func (c ConnectorConfig) PollInterval(fallback time.Duration) time.Duration {
	if raw := c.Extra["poll_interval"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

var timestampKeys = []string{"@timestamp", "timestamp", "time", "ts"}

// Timestamp extracts the event time from common top-level fields. Strings
// are parsed as RFC 3339; numbers are unix milliseconds when larger than
// 1e12 and unix seconds otherwise. Returns the zero time when none match.
func Timestamp(fields map[string]any) time.Time {
	for _, key := range timestampKeys {
		switch v := fields[key].(type) {
		case string:
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return ts
			}
		case int64:
			return fromUnix(float64(v))
		case float64:
			return fromUnix(v)
		case int:
			return fromUnix(float64(v))
		}
	}
	return time.Time{}
}

func fromUnix(n float64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	sec := int64(n)
	return time.Unix(sec, int64((n-float64(sec))*1e9)).UTC()
}
