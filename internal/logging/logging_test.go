package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredOutputIsJSON(t *testing.T) {
	var structured, human bytes.Buffer
	SetOutput(&structured, &human)
	defer SetOutput(os.Stdout, os.Stderr)

	Structured().Info("test message", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestForServiceAddsAttribute(t *testing.T) {
	var structured, human bytes.Buffer
	SetOutput(&structured, &human)
	defer SetOutput(os.Stdout, os.Stderr)

	ForService("training").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "training", entry["service"])
}

func TestCustomLevelNames(t *testing.T) {
	var structured, human bytes.Buffer
	SetOutput(&structured, &human)
	defer SetOutput(os.Stdout, os.Stderr)

	Structured().Log(context.TODO(), LevelFatal, "fatal condition")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "FATAL", entry["level"])
}

func TestSetFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	closeFn, err := SetFileOutput(path, slog.LevelInfo)
	require.NoError(t, err)
	defer SetOutput(os.Stdout, os.Stderr)

	Info("written to file", "run", "test")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), `"run":"test"`)
}
