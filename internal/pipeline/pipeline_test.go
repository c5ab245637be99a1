package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/timber/internal/connector"
	"github.com/crimson-sun/timber/internal/dedup"
	"github.com/crimson-sun/timber/internal/doc"
	"github.com/crimson-sun/timber/internal/model"
	"github.com/crimson-sun/timber/internal/processor"
)

// --- mocks ---

// failingProcessor fails on documents whose message equals failOn and drops
// those whose message equals dropOn.
type failingProcessor struct {
	failOn string
	dropOn string
}

func (m *failingProcessor) Process(d *doc.Doc) error {
	msg, _ := doc.FieldAs[string](d, "message")
	switch {
	case m.failOn != "" && msg == m.failOn:
		return errors.New("mock: cannot process")
	case m.dropOn != "" && msg == m.dropOn:
		return processor.ErrDrop
	}
	d.AddField("processed", true)
	return nil
}

type mockConnector struct {
	logs []model.RawLog
}

func (m *mockConnector) Stream(_ context.Context, _ connector.ConnectorConfig) (<-chan model.RawLog, error) {
	ch := make(chan model.RawLog, len(m.logs))
	for _, raw := range m.logs {
		ch <- raw
	}
	close(ch)
	return ch, nil
}

func (m *mockConnector) Query(_ context.Context, _ connector.ConnectorConfig, _ connector.QueryParams) ([]model.RawLog, error) {
	return m.logs, nil
}

type mockOutput struct {
	mu   sync.Mutex
	docs []*doc.Doc
}

func (m *mockOutput) Write(_ context.Context, d *doc.Doc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, d)
	return nil
}

func (m *mockOutput) Close() error { return nil }

func (m *mockOutput) Docs() []*doc.Doc {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*doc.Doc, len(m.docs))
	copy(cp, m.docs)
	return cp
}

func messages(t *testing.T, docs []*doc.Doc) []string {
	t.Helper()
	var out []string
	for _, d := range docs {
		msg, err := doc.FieldAs[string](d, "message")
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}

func testDoc(t *testing.T, msg string) *doc.Doc {
	t.Helper()
	d, err := doc.New(map[string]any{"message": msg})
	require.NoError(t, err)
	return d
}

// --- toDoc ---

func TestToDoc_JSONLineBecomesRoot(t *testing.T) {
	ts := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	d, err := toDoc(model.RawLog{
		Timestamp: ts,
		Source:    "file",
		Raw:       `{"level":"error","http":{"status":502}}`,
	})
	require.NoError(t, err)

	status, err := d.Field("http.status")
	require.NoError(t, err)
	assert.Equal(t, int64(502), status)
	assert.Equal(t, "2026-02-28T12:00:00Z", d.Source()["@timestamp"])
	assert.Equal(t, "file", d.Source()["source"])
	assert.False(t, d.HasField("message"))
}

func TestToDoc_PlainLineBecomesMessage(t *testing.T) {
	d, err := toDoc(model.RawLog{Raw: "GET /healthz 200", Fields: map[string]any{"host": "web-1"}})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"message": "GET /healthz 200", "host": "web-1"}, d.Source())
}

func TestToDoc_ExistingKeysWin(t *testing.T) {
	d, err := toDoc(model.RawLog{
		Timestamp: time.Now(),
		Source:    "httppoll",
		Raw:       `{"source":"app","@timestamp":"2020-01-01T00:00:00Z"}`,
		Fields:    map[string]any{"source": "ignored", "region": "eu"},
	})
	require.NoError(t, err)

	assert.Equal(t, "app", d.Source()["source"])
	assert.Equal(t, "2020-01-01T00:00:00Z", d.Source()["@timestamp"])
	assert.Equal(t, "eu", d.Source()["region"])
}

func TestToDoc_NullKeysAreFilled(t *testing.T) {
	d, err := toDoc(model.RawLog{
		Timestamp: time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
		Source:    "file",
		Raw:       `{"source":null,"@timestamp":null,"region":null}`,
		Fields:    map[string]any{"region": "eu"},
	})
	require.NoError(t, err)

	assert.Equal(t, "file", d.Source()["source"])
	assert.Equal(t, "2026-02-28T12:00:00Z", d.Source()["@timestamp"])
	assert.Equal(t, "eu", d.Source()["region"])
}

func TestToDoc_InvalidJSONKeptAsMessage(t *testing.T) {
	d, err := toDoc(model.RawLog{Raw: `{"broken":`})
	require.NoError(t, err)
	assert.Equal(t, `{"broken":`, d.Source()["message"])
}

func TestToDoc_EmptyLogFails(t *testing.T) {
	_, err := toDoc(model.RawLog{})
	assert.ErrorIs(t, err, doc.ErrInvalidDocument)
}

// --- streamBuffer ---

func TestStreamBufferFlush(t *testing.T) {
	out := &mockOutput{}
	buf := newStreamBuffer(dedup.New(dedup.Config{}), out, 100*time.Millisecond, 0)

	for i := 0; i < 10; i++ {
		buf.add(testDoc(t, "timeout"))
	}

	select {
	case <-buf.flushCh():
	case <-time.After(time.Second):
		t.Fatal("flush timer didn't fire")
	}
	written, err := buf.flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	docs := out.Docs()
	require.Len(t, docs, 1)
	n, err := docs[0].Field(dedup.DefaultCountField)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}

func TestStreamBufferDistinctDocsPassThrough(t *testing.T) {
	out := &mockOutput{}
	buf := newStreamBuffer(dedup.New(dedup.Config{}), out, 50*time.Millisecond, 0)

	buf.add(testDoc(t, "a"))
	buf.add(testDoc(t, "b"))
	buf.add(testDoc(t, "c"))
	written, err := buf.flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	assert.Equal(t, []string{"a", "b", "c"}, messages(t, out.Docs()))
	assert.Nil(t, buf.flushCh())
}

type flakyOutput struct {
	mockOutput
	fail string
}

func (f *flakyOutput) Write(ctx context.Context, d *doc.Doc) error {
	if msg, _ := doc.FieldAs[string](d, "message"); msg == f.fail {
		return errors.New("rejected " + f.fail)
	}
	return f.mockOutput.Write(ctx, d)
}

func TestStreamBufferWriteErrorKeepsBatch(t *testing.T) {
	out := &flakyOutput{fail: "b"}
	buf := newStreamBuffer(dedup.New(dedup.Config{}), out, time.Second, 0)

	buf.add(testDoc(t, "a"))
	buf.add(testDoc(t, "b"))
	buf.add(testDoc(t, "c"))
	written, err := buf.flush(context.Background())
	require.ErrorContains(t, err, "rejected b")
	assert.Equal(t, 2, written)
	assert.Equal(t, []string{"a", "c"}, messages(t, out.Docs()))

	written, err = buf.flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestStreamBuffer_MaxSizeFlush(t *testing.T) {
	buf := newStreamBuffer(dedup.New(dedup.Config{}), &mockOutput{}, 10*time.Second, 5)

	for i := 0; i < 4; i++ {
		assert.False(t, buf.add(testDoc(t, "x")), "add %d", i+1)
	}
	assert.True(t, buf.add(testDoc(t, "x")))
}

func TestStreamBuffer_UnlimitedSize(t *testing.T) {
	buf := newStreamBuffer(dedup.New(dedup.Config{}), &mockOutput{}, 10*time.Second, 0)
	for i := 0; i < 10000; i++ {
		require.False(t, buf.add(testDoc(t, "x")))
	}
}

// --- Stream / Query ---

func TestStreamDirect_SkipsBadLog(t *testing.T) {
	conn := &mockConnector{logs: []model.RawLog{
		{Source: "test", Raw: "good log 1"},
		{Source: "test", Raw: "BAD"},
		{Source: "test", Raw: "good log 2"},
	}}
	out := &mockOutput{}
	p := New(conn, &failingProcessor{failOn: "BAD"}, out)

	require.NoError(t, p.Stream(context.Background(), connector.ConnectorConfig{}))

	assert.Equal(t, []string{"good log 1", "good log 2"}, messages(t, out.Docs()))
	assert.Equal(t, Stats{Processed: 2, Failed: 1}, p.Stats())
	assert.True(t, out.Docs()[0].HasField("processed"))
}

func TestStreamCountsDrops(t *testing.T) {
	conn := &mockConnector{logs: []model.RawLog{
		{Raw: "keep"},
		{Raw: "noise"},
		{Raw: "noise"},
		{},
	}}
	out := &mockOutput{}
	p := New(conn, &failingProcessor{dropOn: "noise"}, out)

	require.NoError(t, p.Stream(context.Background(), connector.ConnectorConfig{}))

	assert.Equal(t, []string{"keep"}, messages(t, out.Docs()))
	assert.Equal(t, Stats{Processed: 1, Dropped: 2, Failed: 1}, p.Stats())
	assert.NoError(t, p.Close())
}

func TestStreamWithDedup(t *testing.T) {
	conn := &mockConnector{logs: []model.RawLog{
		{Raw: "connection timeout"},
		{Raw: "BAD"},
		{Raw: "connection timeout"},
		{Raw: "disk full"},
	}}
	out := &mockOutput{}
	p := New(conn, &failingProcessor{failOn: "BAD"}, out,
		WithDedup(dedup.New(dedup.Config{}), 50*time.Millisecond))

	require.NoError(t, p.Stream(context.Background(), connector.ConnectorConfig{}))

	docs := out.Docs()
	assert.Equal(t, []string{"connection timeout", "disk full"}, messages(t, docs))
	n, err := docs[0].Field(dedup.DefaultCountField)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(1), p.Stats().Failed)
}

func TestStreamWithDedup_FlushesOnCancel(t *testing.T) {
	ch := make(chan model.RawLog)
	conn := &streamConnector{ch: ch}
	out := &mockOutput{}
	p := New(conn, nil, out, WithDedup(dedup.New(dedup.Config{}), time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Stream(ctx, connector.ConnectorConfig{}) }()

	ch <- model.RawLog{Raw: "pending"}
	ch <- model.RawLog{Raw: "pending"}
	cancel()

	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, []string{"pending"}, messages(t, out.Docs()))
}

func TestQuery_SkipsAndDedups(t *testing.T) {
	conn := &mockConnector{logs: []model.RawLog{
		{Raw: "good"},
		{Raw: "BAD"},
		{Raw: "good"},
		{Raw: "other"},
	}}
	out := &mockOutput{}
	p := New(conn, &failingProcessor{failOn: "BAD"}, out,
		WithDedup(dedup.New(dedup.Config{}), time.Second))

	require.NoError(t, p.Query(context.Background(), connector.ConnectorConfig{}, connector.QueryParams{}))

	assert.Equal(t, []string{"good", "other"}, messages(t, out.Docs()))
	assert.Equal(t, Stats{Processed: 3, Failed: 1}, p.Stats())
}

func TestQuery_ConnectorError(t *testing.T) {
	p := New(&errConnector{}, nil, &mockOutput{})
	err := p.Query(context.Background(), connector.ConnectorConfig{}, connector.QueryParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline query")
}

type streamConnector struct {
	ch chan model.RawLog
}

func (s *streamConnector) Stream(context.Context, connector.ConnectorConfig) (<-chan model.RawLog, error) {
	return s.ch, nil
}

func (s *streamConnector) Query(context.Context, connector.ConnectorConfig, connector.QueryParams) ([]model.RawLog, error) {
	return nil, nil
}

type errConnector struct{}

func (errConnector) Stream(context.Context, connector.ConnectorConfig) (<-chan model.RawLog, error) {
	return nil, errors.New("unavailable")
}

func (errConnector) Query(context.Context, connector.ConnectorConfig, connector.QueryParams) ([]model.RawLog, error) {
	return nil, errors.New("unavailable")
}
