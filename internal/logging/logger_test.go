package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriters_SplitsByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger, err := NewWithWriters("prod", "info", &out, &errOut)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hello")
	logger.Error("boom")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "hello")
	assert.NotContains(t, out.String(), "boom")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(errOut.Bytes()), &entry))
	assert.Equal(t, "boom", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, entry["ts"])
}

func TestNewWithWriters_DevIsConsole(t *testing.T) {
	var out, errOut bytes.Buffer
	logger, err := NewWithWriters("dev", "debug", &out, &errOut)
	require.NoError(t, err)

	logger.Debug("details")
	require.NoError(t, logger.Sync())

	line := out.String()
	assert.Contains(t, line, "details")
	assert.False(t, json.Valid(bytes.TrimSpace(out.Bytes())))
	assert.Empty(t, errOut.String())
}

func TestNewWithWriters_Errors(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewWithWriters("staging", "info", &buf, &buf)
	assert.ErrorContains(t, err, "unknown environment")

	_, err = NewWithWriters("dev", "loud", &buf, &buf)
	assert.ErrorContains(t, err, "invalid log level")
}
