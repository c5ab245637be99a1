package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allVars = []string{
	"TIMBER_MODE", "TIMBER_LOG_LEVEL", "TIMBER_CONNECTOR", "TIMBER_API_KEY",
	"TIMBER_ENDPOINT", "TIMBER_POLL_INTERVAL", "TIMBER_FILE_PATH",
	"TIMBER_FILE_COMPRESSION", "TIMBER_FILE_START_AT", "TIMBER_HTTP_PATH",
	"TIMBER_HTTP_ITEMS_PATH", "TIMBER_HTTP_CURSOR_PATH", "TIMBER_HTTP_CURSOR_PARAM",
	"TIMBER_HTTP_ID_FIELD", "TIMBER_PIPELINE", "TIMBER_DEDUP_WINDOW",
	"TIMBER_DEDUP_FIELDS", "TIMBER_MAX_BUFFER_SIZE", "TIMBER_OUTPUT",
	"TIMBER_OUTPUT_MODE", "TIMBER_OUTPUT_PRETTY", "TIMBER_OUTPUT_FILE",
	"TIMBER_OUTPUT_FILE_MAX_SIZE", "TIMBER_OUTPUT_COMPRESSION", "TIMBER_WEBHOOK_URL",
	"TIMBER_WEBHOOK_HEADERS", "TIMBER_WEBHOOK_GZIP", "TIMBER_QUERY_START",
	"TIMBER_QUERY_END", "TIMBER_QUERY_LIMIT",
}

// clearEnv blanks every Timber variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allVars {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, "stream", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "file", cfg.Connector.Provider)
	assert.Empty(t, cfg.Connector.APIKey)
	assert.Nil(t, cfg.Connector.Extra)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.DedupWindow)
	assert.Nil(t, cfg.Pipeline.DedupFields)
	assert.Equal(t, []string{"stdout"}, cfg.Output.Targets)
	assert.Equal(t, "nested", cfg.Output.Mode)
	assert.False(t, cfg.Output.Pretty)
	assert.Nil(t, cfg.Output.WebhookHeaders)
}

func TestLoad_FileConnectorExtra(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMBER_FILE_PATH", "/var/log/app.log.gz")
	t.Setenv("TIMBER_FILE_START_AT", "end")
	t.Setenv("TIMBER_POLL_INTERVAL", "2s")
	t.Setenv("TIMBER_HTTP_PATH", "/ignored")

	cfg := Load()

	assert.Equal(t, map[string]string{
		"path":          "/var/log/app.log.gz",
		"start_at":      "end",
		"poll_interval": "2s",
	}, cfg.Connector.Extra)
}

func TestLoad_HTTPPollExtra(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMBER_CONNECTOR", "httppoll")
	t.Setenv("TIMBER_HTTP_PATH", "/v1/logs")
	t.Setenv("TIMBER_HTTP_ITEMS_PATH", "result.logs")
	t.Setenv("TIMBER_FILE_PATH", "/ignored")

	cfg := Load()

	assert.Equal(t, map[string]string{
		"path":       "/v1/logs",
		"items_path": "result.logs",
	}, cfg.Connector.Extra)
}

func TestLoad_OutputSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMBER_OUTPUT", "stdout, webhook,,file")
	t.Setenv("TIMBER_OUTPUT_MODE", "FLAT")
	t.Setenv("TIMBER_OUTPUT_PRETTY", "true")
	t.Setenv("TIMBER_OUTPUT_FILE_MAX_SIZE", "1048576")
	t.Setenv("TIMBER_WEBHOOK_HEADERS", "Authorization=Bearer x, X-Team = core,broken")
	t.Setenv("TIMBER_WEBHOOK_GZIP", "1")

	cfg := Load()

	assert.Equal(t, []string{"stdout", "webhook", "file"}, cfg.Output.Targets)
	assert.Equal(t, "flat", cfg.Output.Mode)
	assert.True(t, cfg.Output.Pretty)
	assert.Equal(t, int64(1048576), cfg.Output.FileMaxSize)
	assert.Equal(t, map[string]string{"Authorization": "Bearer x", "X-Team": "core"}, cfg.Output.WebhookHeaders)
	assert.True(t, cfg.Output.WebhookGzip)
}

func TestLoad_DedupSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMBER_DEDUP_WINDOW", "10s")
	t.Setenv("TIMBER_DEDUP_FIELDS", "level,message")
	t.Setenv("TIMBER_MAX_BUFFER_SIZE", "500")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.Pipeline.DedupWindow)
	assert.Equal(t, []string{"level", "message"}, cfg.Pipeline.DedupFields)
	assert.Equal(t, 500, cfg.Pipeline.MaxBufferSize)
}

func TestLoad_DedupWindowDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMBER_DEDUP_WINDOW", "0")
	assert.Zero(t, Load().Pipeline.DedupWindow)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMBER_DEDUP_WINDOW", "soon")
	t.Setenv("TIMBER_QUERY_LIMIT", "many")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.Pipeline.DedupWindow)
	assert.Zero(t, cfg.Query.Limit)
}

// --- Validation tests ---

func validConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	def := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(def, []byte("processors: []\n"), 0644))

	return Config{
		Mode:     "stream",
		LogLevel: "info",
		Connector: ConnectorConfig{
			Provider: "file",
			Extra:    map[string]string{"path": filepath.Join(dir, "app.log")},
		},
		Pipeline: PipelineConfig{DefinitionPath: def, DedupWindow: 5 * time.Second},
		Output:   OutputConfig{Targets: []string{"stdout"}, Mode: "nested"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig(t).Validate())
}

func TestValidate_BadMode(t *testing.T) {
	cfg := validConfig(t)
	cfg.Mode = "batch"
	assert.ErrorContains(t, cfg.Validate(), "mode")
}

func TestValidate_NegativeDedupWindow(t *testing.T) {
	cfg := validConfig(t)
	cfg.Pipeline.DedupWindow = -time.Second
	assert.ErrorContains(t, cfg.Validate(), "dedup")
}

func TestValidate_MissingDefinitionFile(t *testing.T) {
	cfg := validConfig(t)
	cfg.Pipeline.DefinitionPath = "/nonexistent/pipeline.yaml"
	assert.ErrorContains(t, cfg.Validate(), "pipeline definition")
}

func TestValidate_MissingFilePath(t *testing.T) {
	cfg := validConfig(t)
	cfg.Connector.Extra = nil
	assert.ErrorContains(t, cfg.Validate(), "TIMBER_FILE_PATH")
}

func TestValidate_HTTPPollNeedsEndpoint(t *testing.T) {
	cfg := validConfig(t)
	cfg.Connector = ConnectorConfig{Provider: "httppoll"}
	assert.ErrorContains(t, cfg.Validate(), "TIMBER_ENDPOINT")
}

func TestValidate_OutputRequirements(t *testing.T) {
	cfg := validConfig(t)
	cfg.Output.Targets = []string{"file", "webhook", "kafka"}
	cfg.Output.FileCompression = "brotli"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"TIMBER_OUTPUT_FILE", "TIMBER_WEBHOOK_URL", "kafka", "TIMBER_OUTPUT_COMPRESSION"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidate_QueryRange(t *testing.T) {
	cfg := validConfig(t)
	cfg.Query = QueryConfig{Start: "2026-02-28T12:00:00Z", End: "2026-02-28T11:00:00Z"}
	assert.ErrorContains(t, cfg.Validate(), "before")

	cfg.Query = QueryConfig{Start: "yesterday"}
	assert.ErrorContains(t, cfg.Validate(), "TIMBER_QUERY_START")
}

func TestQueryRange(t *testing.T) {
	start, end, err := QueryConfig{Start: "2026-02-28T11:00:00Z"}.Range()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 11, 0, 0, 0, time.UTC), start)
	assert.True(t, end.IsZero())
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Mode = "batch"
	cfg.LogLevel = "loud"
	cfg.Output.Mode = "columnar"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"mode", "log level", "output mode"} {
		assert.ErrorContains(t, err, want)
	}
}
