package otel

import (
	"github.com/abelbrown/marketmon/internal/controller"
	"github.com/abelbrown/marketmon/internal/fetch"
)

// CycleRecorder turns controller cycle notifications into events.
type CycleRecorder struct {
	Log  *Logger
	Comp string
}

var _ controller.Recorder = (*CycleRecorder)(nil)

// NewCycleRecorder returns a recorder emitting to l under component "controller".
func NewCycleRecorder(l *Logger) *CycleRecorder {
	return &CycleRecorder{Log: l, Comp: "controller"}
}

func (r *CycleRecorder) CycleStarted(c controller.Cycle) {
	r.Log.Emit(Event{
		Time:    c.StartedAt,
		Level:   LevelInfo,
		Kind:    KindCycleStart,
		Comp:    r.Comp,
		CycleID: c.ID,
		Gen:     c.Generation,
		Query:   c.Query,
		Chaos:   c.Chaos,
	})
}

func (r *CycleRecorder) CycleCompleted(c controller.Cycle, o controller.Outcome) {
	ev := Event{
		Time:    o.CompletedAt,
		Level:   LevelInfo,
		Kind:    KindCycleSuccess,
		Comp:    r.Comp,
		CycleID: c.ID,
		Gen:     c.Generation,
		Query:   c.Query,
		Chaos:   c.Chaos,
		Outcome: o.Label(),
		Count:   o.Products,
		Dur:     o.Latency,
	}
	if o.Err != nil {
		ev.Level = LevelError
		ev.Kind = KindCycleError
		ev.Err = o.Err.Error()
		ev.Status = fetch.StatusOf(o.Err)
		if o.Err.Kind() == fetch.KindInjectedFault {
			ev.Level = LevelWarn
		}
	}
	r.Log.Emit(ev)
}

func (r *CycleRecorder) CycleSuperseded(c controller.Cycle) {
	r.Log.Emit(Event{
		Level:   LevelDebug,
		Kind:    KindCycleSuperseded,
		Comp:    r.Comp,
		CycleID: c.ID,
		Gen:     c.Generation,
		Query:   c.Query,
	})
}
