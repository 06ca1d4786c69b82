package otel

import (
	"os"
	"sync/atomic"
)

// TraceEnv enables trace.msg_received events for every Bubble Tea message
// when set to any non-empty value.
const TraceEnv = "MARKETMON_TRACE"

var tracing atomic.Bool

func init() {
	tracing.Store(os.Getenv(TraceEnv) != "")
}

// TraceEnabled reports whether message tracing is on.
func TraceEnabled() bool {
	return tracing.Load()
}

func setTraceEnabled(v bool) {
	tracing.Store(v)
}
