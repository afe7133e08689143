package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger_WritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(&buf, "info")

	log.With("module", "reports").Info(context.Background(), "uploaded", "report_id", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "uploaded", line["message"])
	assert.Equal(t, "reports", line["module"])
	assert.EqualValues(t, 7, line["report_id"])
}

func TestZerologLogger_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(&buf, "warn")

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden too")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestNew_SelectsBackend(t *testing.T) {
	var buf bytes.Buffer

	_, isZero := New(BackendZerolog, "info", &buf).(*ZerologLogger)
	assert.True(t, isZero)

	_, isSlog := New("unknown", "info", &buf).(*SlogLogger)
	assert.True(t, isSlog)
}

func TestNew_SlogLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(BackendSlog, "error", &buf)

	log.Warn(context.Background(), "dropped")
	log.Error(context.Background(), "kept", "k", "v")

	out := buf.String()
	assert.False(t, strings.Contains(out, "dropped"))
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"k":"v"`)
}
