// Package otel provides structured observability for marketmon.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer keeps recent events in memory for the debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Cycle events
	KindCycleStart      EventKind = "cycle.start"
	KindCycleSuccess    EventKind = "cycle.success"
	KindCycleError      EventKind = "cycle.error"
	KindCycleSuperseded EventKind = "cycle.superseded"

	// Store events
	KindStoreError EventKind = "store.error"

	// UI events
	KindKeyPress EventKind = "ui.key"
	KindChaos    EventKind = "ui.chaos"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace events, emitted only when MARKETMON_TRACE is set
	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "controller", "ui", "main"
	SessionID string         `json:"session_id,omitempty"` // same for entire app run
	CycleID   string         `json:"cid,omitempty"`        // fetch cycle correlation ID
	Gen       uint64         `json:"gen,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Query     string         `json:"query,omitempty"`
	Chaos     bool           `json:"chaos,omitempty"`
	Outcome   string         `json:"outcome,omitempty"`
	Status    int            `json:"status,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
