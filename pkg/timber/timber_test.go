package timber

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definition = `
processors:
  - type: lowercase
    config: {field: level}
  - type: drop
    config: {field: level, value: debug}
  - type: remove_field
    config: {fields: [password, token]}
`

func TestNewWithoutDefinitionPassesThrough(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())

	out, err := p.ProcessJSON([]byte(`{"a":{"b":1}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": int64(1)}}, out)
}

func TestProcessJSONRunsChain(t *testing.T) {
	p, err := New(WithDefinition([]byte(definition)))
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	out, err := p.ProcessJSON([]byte(`{"level":"WARN","password":"hunter2","msg":"slow"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"level": "warn", "msg": "slow"}, out)
}

func TestProcessJSONDropped(t *testing.T) {
	p, err := New(WithDefinition([]byte(definition)))
	require.NoError(t, err)

	_, err = p.ProcessJSON([]byte(`{"level":"DEBUG"}`))
	assert.ErrorIs(t, err, ErrDropped)
}

func TestProcessJSONRejectsBadInput(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	_, err = p.ProcessJSON([]byte(`[1,2]`))
	assert.Error(t, err)

	_, err = p.ProcessJSON([]byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestProcessBatchSkipsDropped(t *testing.T) {
	p, err := New(WithDefinition([]byte(definition)), WithFlatten())
	require.NoError(t, err)

	out, err := p.ProcessBatch([][]byte{
		[]byte(`{"level":"INFO","n":1}`),
		[]byte(`{"level":"debug","n":2}`),
		[]byte(`{"level":"ERROR","n":3}`),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0]["n"])
	assert.Equal(t, "error", out[1]["level"])

	_, err = p.ProcessBatch([][]byte{[]byte(`not json`)})
	assert.ErrorContains(t, err, "line 0")
}

func TestWithDefinitionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(definition), 0644))

	p, err := New(WithDefinitionFile(path))
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	_, err = New(WithDefinitionFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestNewUnknownProcessor(t *testing.T) {
	_, err := New(WithDefinition([]byte("processors:\n  - type: teleport\n")))
	assert.ErrorContains(t, err, "teleport")
}

func TestConcurrentProcessJSON(t *testing.T) {
	p, err := New(WithDefinition([]byte(definition)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := p.ProcessJSON([]byte(`{"level":"INFO","token":"x"}`))
			assert.NoError(t, err)
			assert.Equal(t, map[string]any{"level": "info"}, out)
		}()
	}
	wg.Wait()
}

func TestDocHelpers(t *testing.T) {
	d, err := NewDoc(map[string]any{"a": map[string]any{"b.c": "x"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b.c"}, Tokenize("a."+Escape("b.c")))
	v, err := d.Field("a." + Escape("b.c"))
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	_, err = d.Field("a.missing")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}
