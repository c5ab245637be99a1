package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-sun/timber/internal/compress"
)

// Config holds all Timber configuration.
type Config struct {
	Mode      string // "stream" or "query"
	LogLevel  string
	Connector ConnectorConfig
	Pipeline  PipelineConfig
	Output    OutputConfig
	Query     QueryConfig
}

// ConnectorConfig holds connector-specific settings.
type ConnectorConfig struct {
	Provider string
	APIKey   string
	Endpoint string
	Extra    map[string]string
}

// PipelineConfig holds processing settings.
type PipelineConfig struct {
	DefinitionPath string        // YAML processor definition; empty runs no processors
	DedupWindow    time.Duration // 0 disables dedup
	DedupFields    []string      // empty fingerprints the whole document
	MaxBufferSize  int           // 0 = unlimited
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Targets         []string // any of "stdout", "file", "webhook"
	Mode            string   // "nested" or "flat"
	Pretty          bool
	FilePath        string
	FileMaxSize     int64
	FileCompression string
	WebhookURL      string
	WebhookHeaders  map[string]string
	WebhookGzip     bool
}

// QueryConfig bounds a one-shot query. Times are RFC 3339.
type QueryConfig struct {
	Start string
	End   string
	Limit int
}

var (
	validModes       = []string{"stream", "query"}
	validTargets     = []string{"stdout", "file", "webhook"}
	validOutputModes = []string{"nested", "flat", "flattened"}
	validLogLevels   = []string{"debug", "info", "warn", "warning", "error"}
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	provider := getenv("TIMBER_CONNECTOR", "file")
	return Config{
		Mode:     strings.ToLower(getenv("TIMBER_MODE", "stream")),
		LogLevel: getenv("TIMBER_LOG_LEVEL", "info"),
		Connector: ConnectorConfig{
			Provider: provider,
			APIKey:   os.Getenv("TIMBER_API_KEY"),
			Endpoint: os.Getenv("TIMBER_ENDPOINT"),
			Extra:    loadConnectorExtra(provider),
		},
		Pipeline: PipelineConfig{
			DefinitionPath: os.Getenv("TIMBER_PIPELINE"),
			DedupWindow:    getenvDuration("TIMBER_DEDUP_WINDOW", 5*time.Second),
			DedupFields:    getenvList("TIMBER_DEDUP_FIELDS"),
			MaxBufferSize:  getenvInt("TIMBER_MAX_BUFFER_SIZE", 0),
		},
		Output: OutputConfig{
			Targets:         getenvListOr("TIMBER_OUTPUT", []string{"stdout"}),
			Mode:            strings.ToLower(getenv("TIMBER_OUTPUT_MODE", "nested")),
			Pretty:          getenvBool("TIMBER_OUTPUT_PRETTY"),
			FilePath:        os.Getenv("TIMBER_OUTPUT_FILE"),
			FileMaxSize:     int64(getenvInt("TIMBER_OUTPUT_FILE_MAX_SIZE", 0)),
			FileCompression: os.Getenv("TIMBER_OUTPUT_COMPRESSION"),
			WebhookURL:      os.Getenv("TIMBER_WEBHOOK_URL"),
			WebhookHeaders:  getenvPairs("TIMBER_WEBHOOK_HEADERS"),
			WebhookGzip:     getenvBool("TIMBER_WEBHOOK_GZIP"),
		},
		Query: QueryConfig{
			Start: os.Getenv("TIMBER_QUERY_START"),
			End:   os.Getenv("TIMBER_QUERY_END"),
			Limit: getenvInt("TIMBER_QUERY_LIMIT", 0),
		},
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	if !slices.Contains(validModes, c.Mode) {
		errs = append(errs, fmt.Errorf("mode %q must be one of %v", c.Mode, validModes))
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("log level %q must be one of %v", c.LogLevel, validLogLevels))
	}

	switch c.Connector.Provider {
	case "file":
		if c.Connector.Extra["path"] == "" {
			errs = append(errs, errors.New("TIMBER_FILE_PATH is required for the file connector"))
		}
		if codec := c.Connector.Extra["compression"]; codec != "" {
			if _, err := compress.ParseCodec(codec); err != nil {
				errs = append(errs, fmt.Errorf("TIMBER_FILE_COMPRESSION: %w", err))
			}
		}
	case "httppoll":
		if c.Connector.Endpoint == "" {
			errs = append(errs, errors.New("TIMBER_ENDPOINT is required for the httppoll connector"))
		}
	case "":
		errs = append(errs, errors.New("TIMBER_CONNECTOR must not be empty"))
	}

	if c.Pipeline.DefinitionPath != "" {
		if _, err := os.Stat(c.Pipeline.DefinitionPath); err != nil {
			errs = append(errs, fmt.Errorf("pipeline definition: %w", err))
		}
	}
	if c.Pipeline.DedupWindow < 0 {
		errs = append(errs, fmt.Errorf("dedup window must be >= 0, got %v", c.Pipeline.DedupWindow))
	}
	if c.Pipeline.MaxBufferSize < 0 {
		errs = append(errs, fmt.Errorf("max buffer size must be >= 0, got %d", c.Pipeline.MaxBufferSize))
	}

	errs = append(errs, c.Output.validate()...)

	if _, _, err := c.Query.Range(); err != nil {
		errs = append(errs, err)
	}
	if c.Query.Limit < 0 {
		errs = append(errs, fmt.Errorf("query limit must be >= 0, got %d", c.Query.Limit))
	}

	return errors.Join(errs...)
}

func (o OutputConfig) validate() []error {
	var errs []error
	if len(o.Targets) == 0 {
		errs = append(errs, errors.New("TIMBER_OUTPUT must name at least one output"))
	}
	for _, t := range o.Targets {
		if !slices.Contains(validTargets, t) {
			errs = append(errs, fmt.Errorf("output %q must be one of %v", t, validTargets))
		}
	}
	if !slices.Contains(validOutputModes, o.Mode) {
		errs = append(errs, fmt.Errorf("output mode %q must be one of %v", o.Mode, validOutputModes))
	}
	if slices.Contains(o.Targets, "file") && o.FilePath == "" {
		errs = append(errs, errors.New("TIMBER_OUTPUT_FILE is required for the file output"))
	}
	if o.FileCompression != "" {
		if _, err := compress.ParseCodec(o.FileCompression); err != nil {
			errs = append(errs, fmt.Errorf("TIMBER_OUTPUT_COMPRESSION: %w", err))
		}
	}
	if slices.Contains(o.Targets, "webhook") && o.WebhookURL == "" {
		errs = append(errs, errors.New("TIMBER_WEBHOOK_URL is required for the webhook output"))
	}
	return errs
}

// Range parses the query bounds. Empty bounds are returned as zero times.
func (q QueryConfig) Range() (start, end time.Time, err error) {
	if q.Start != "" {
		if start, err = time.Parse(time.RFC3339, q.Start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("TIMBER_QUERY_START: %w", err)
		}
	}
	if q.End != "" {
		if end, err = time.Parse(time.RFC3339, q.End); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("TIMBER_QUERY_END: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("query start %s must be before end %s", q.Start, q.End)
	}
	return start, end, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConnectorExtra reads provider-specific env vars into an Extra map.
func loadConnectorExtra(provider string) map[string]string {
	type extraVar struct {
		envVar   string
		extraKey string
	}
	vars := []extraVar{{"TIMBER_POLL_INTERVAL", "poll_interval"}}
	switch provider {
	case "file":
		vars = append(vars,
			extraVar{"TIMBER_FILE_PATH", "path"},
			extraVar{"TIMBER_FILE_COMPRESSION", "compression"},
			extraVar{"TIMBER_FILE_START_AT", "start_at"},
		)
	case "httppoll":
		vars = append(vars,
			extraVar{"TIMBER_HTTP_PATH", "path"},
			extraVar{"TIMBER_HTTP_ITEMS_PATH", "items_path"},
			extraVar{"TIMBER_HTTP_CURSOR_PATH", "cursor_path"},
			extraVar{"TIMBER_HTTP_CURSOR_PARAM", "cursor_param"},
			extraVar{"TIMBER_HTTP_ID_FIELD", "id_field"},
		)
	}

	var m map[string]string
	for _, v := range vars {
		if val := os.Getenv(v.envVar); val != "" {
			if m == nil {
				m = make(map[string]string)
			}
			m[v.extraKey] = val
		}
	}
	return m
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

// getenvDuration accepts Go durations; a bare "0" disables the setting.
func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvListOr(key string, fallback []string) []string {
	if l := getenvList(key); len(l) > 0 {
		return l
	}
	return fallback
}

// getenvPairs parses "k1=v1,k2=v2".
func getenvPairs(key string) map[string]string {
	var m map[string]string
	for _, pair := range getenvList(key) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		if m == nil {
			m = make(map[string]string)
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return m
}
