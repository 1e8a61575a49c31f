package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "prompter.log")
	logger, closeFn, err := New(Options{Path: path, Level: zapcore.InfoLevel})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("take stored", zap.String("id", "abc"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "take stored", entry["msg"])
	assert.Equal(t, "abc", entry["id"])
	assert.Equal(t, "prompter", entry["logger"])
}

func TestNewRequiresPath(t *testing.T) {
	_, _, err := New(Options{})
	assert.Error(t, err)
}
