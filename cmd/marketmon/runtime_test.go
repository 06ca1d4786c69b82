package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStderrLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	quiet := stderrLogger(&buf, false)
	quiet.Infow("cycle applied", "query", "tv")
	quiet.Warnw("save cycle failed", "cycle", "c1")
	_ = quiet.Sync()

	out := buf.String()
	assert.NotContains(t, out, "cycle applied")
	assert.Contains(t, out, "save cycle failed")

	buf.Reset()
	verbose := stderrLogger(&buf, true)
	verbose.Debugw("controller started", "tick", "4s")
	_ = verbose.Sync()
	assert.True(t, strings.Contains(buf.String(), "controller started"), "verbose should include debug lines")
}
