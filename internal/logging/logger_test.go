package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestHelpersAreNoopsBeforeInit(t *testing.T) {
	SetLogger(nil)
	Info("ignored", "k", "v")
	Debug("ignored")
	Warn("ignored")
	Error("ignored")
}

func TestNewWritesJSONWithKeyvals(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(New(zapcore.AddSync(&buf), zapcore.InfoLevel))
	t.Cleanup(func() { SetLogger(nil) })

	Info("cycle applied", "query", "phone", "products", 12)
	Debug("dropped below level")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "cycle applied", rec["msg"])
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "phone", rec["query"])
	assert.Equal(t, float64(12), rec["products"])
}

func TestInitCreatesDatedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Options{Dir: dir, Verbose: true, Version: "test"}))
	Debug("debug visible when verbose")
	Close()

	data, err := os.ReadFile(filepath.Join(dir, "logs", FileName(time.Now())))
	require.NoError(t, err)
	assert.Contains(t, string(data), "marketmon started")
	assert.Contains(t, string(data), "debug visible when verbose")
	assert.Contains(t, string(data), "marketmon shutting down")
}

func TestFileName(t *testing.T) {
	day := time.Date(2026, 1, 9, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "marketmon-2026-01-09.log", FileName(day))
}
